package list_test

import (
	"mvcclist/list"
	"testing"
)

// TestTxnCommitScenario is scenario 3 from spec §8.
func TestTxnCommitScenario(t *testing.T) {
	l := newTestList[int](t)
	l.InsertTail(1)
	l.InsertTail(2)

	tx, err := l.StartTxn()
	if err != nil {
		t.Fatalf("StartTxn: %v", err)
	}

	tx.InsertAfter(1, 42)
	tx.InsertTail(99)
	tx.Remove(2)

	assertSlice(t, txForEach(tx), []int{1, 42, 99})
	// The main list is unaffected until commit.
	assertSlice(t, collect(l), []int{1, 2})

	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	assertSlice(t, collect(l), []int{1, 42, 99})
	if n := l.Len(); n != 3 {
		t.Fatalf("Len() = %d, want 3", n)
	}
}

// TestTxnRollback is scenario 4 from spec §8.
func TestTxnRollback(t *testing.T) {
	l := newTestList[string](t)
	l.InsertTail("A")

	tx, err := l.StartTxn()
	if err != nil {
		t.Fatalf("StartTxn: %v", err)
	}
	tx.InsertTail("B")
	tx.Remove("A")

	tx.Rollback()

	assertSlice(t, collect(l), []string{"A"})
	if n := l.Len(); n != 1 {
		t.Fatalf("Len() = %d, want 1", n)
	}
	// Rolling back or committing again is a no-op error, not a panic.
	if err := tx.Commit(); err == nil {
		t.Fatal("Commit after Rollback returned nil error, want ErrTxnDone-class error")
	}
	tx.Rollback() // idempotent
}

// TestTxnInsertAfterOrderingPreserved is scenario 5 from spec §8: two
// insert_afters against the same anchor land in staging order, not reversed.
func TestTxnInsertAfterOrderingPreserved(t *testing.T) {
	l := newTestList[int](t)
	l.InsertTail(0)

	tx, err := l.StartTxn()
	if err != nil {
		t.Fatalf("StartTxn: %v", err)
	}
	tx.InsertAfter(0, 100) // "U"
	tx.InsertAfter(0, 200) // "V"

	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	assertSlice(t, collect(l), []int{0, 100, 200})
}

// TestTxnEmptyCommitIsNoOp is property P4 from spec §8.
func TestTxnEmptyCommitIsNoOp(t *testing.T) {
	l := newTestList[int](t)
	l.InsertTail(1)
	l.InsertTail(2)

	tx, err := l.StartTxn()
	if err != nil {
		t.Fatalf("StartTxn: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	assertSlice(t, collect(l), []int{1, 2})
}

// TestTxnRemoveCancelsStagedInsert exercises spec §4.4's txn.Remove rule:
// removing an element still only staged for insert just cancels the
// staged insert, with no list effect at all.
func TestTxnRemoveCancelsStagedInsert(t *testing.T) {
	l := newTestList[int](t)

	tx, err := l.StartTxn()
	if err != nil {
		t.Fatalf("StartTxn: %v", err)
	}
	tx.InsertTail(7)
	if !tx.Contains(7) {
		t.Fatal("Contains(7) = false after staged insert")
	}
	tx.Remove(7)
	if tx.Contains(7) {
		t.Fatal("Contains(7) = true after cancelling staged insert")
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if l.Contains(7) {
		t.Fatal("list contains 7 after a cancelled staged insert was committed")
	}
}

func TestTxnContainsReadYourOwnWrites(t *testing.T) {
	l := newTestList[string](t)
	l.InsertTail("A")

	tx, err := l.StartTxn()
	if err != nil {
		t.Fatalf("StartTxn: %v", err)
	}
	if !tx.Contains("A") {
		t.Fatal("Contains(A) = false, A is visible in the snapshot")
	}
	tx.Remove("A")
	if tx.Contains("A") {
		t.Fatal("Contains(A) = true after staging its removal")
	}
	tx.Rollback()
}

func txForEach(tx *list.Txn[int]) []int {
	var out []int
	tx.ForEach(func(e int) bool {
		out = append(out, e)
		return true
	})
	return out
}
