package list

import (
	"sync/atomic"
	"time"
)

// txState is the transaction lifecycle, same active/committed/rolledBack
// state machine shape as the teacher's Tx[K,V] (Jekaa-go-mvcc-map/mvcc/tx.go).
type txState uint32

const (
	txActive     txState = 0
	txCommitted  txState = 1
	txRolledBack txState = 2
)

// afterOp is one staged insert_after: insert elm immediately after anchor.
type afterOp[E comparable] struct {
	anchor E
	elm    E
}

// Txn buffers a batch of operations against a captured snapshot version and
// applies them, on Commit, as a sequence of ordinary lock-free list
// operations (spec §4.4). A Txn must be used by exactly one goroutine from
// Start to Commit/Rollback (spec §5); it is not itself safe for concurrent
// use, matching the teacher's single-goroutine Tx contract.
type Txn[E comparable] struct {
	list     *List[E]
	snapshot uint64
	part     *participant[E] // holds this txn's active-snapshot slot

	state atomic.Uint32

	headInserts  []E
	tailInserts  []E
	afterInserts []afterOp[E]
	removes      map[E]struct{}
}

// StartTxn captures commit_counter and publishes it into a dedicated
// active-snapshot slot, preventing reclamation of anything still visible to
// this transaction (spec §4.4 start). Returns an error only on hazard-table
// exhaustion (spec §4.6).
func (l *List[E]) StartTxn() (*Txn[E], error) {
	p, ok := l.reg.acquire()
	if !ok {
		l.cfg.logger.Warn("hazard registry exhausted", "op", "txn_start")
		return nil, newErrHazardExhausted("txn_start")
	}
	s := l.clk.current()
	p.publishSnapshot(s)
	return &Txn[E]{list: l, snapshot: s, part: p}, nil
}

func (t *Txn[E]) checkActive() bool {
	if txState(t.state.Load()) != txActive {
		t.list.cfg.logger.Warn("transaction used after commit/rollback")
		return false
	}
	return true
}

// InsertHead stages a head-insert; not reflected in the list until Commit.
func (t *Txn[E]) InsertHead(e E) {
	if !t.checkActive() {
		return
	}
	t.headInserts = append(t.headInserts, e)
}

// InsertTail stages a tail-insert.
func (t *Txn[E]) InsertTail(e E) {
	if !t.checkActive() {
		return
	}
	t.tailInserts = append(t.tailInserts, e)
}

// InsertAfter stages an insert-after-anchor. Anchor resolution against the
// live list (and against other staged insert_afters sharing the same
// anchor) happens at Commit time, not here.
func (t *Txn[E]) InsertAfter(anchor, e E) {
	if !t.checkActive() {
		return
	}
	t.afterInserts = append(t.afterInserts, afterOp[E]{anchor: anchor, elm: e})
}

// Remove stages a removal, per spec §4.4: cancels a matching staged insert
// if one exists (the caller retains ownership, no list effect), else stages
// an actual removal if e is currently visible at this txn's snapshot, else
// is a no-op.
func (t *Txn[E]) Remove(e E) {
	if !t.checkActive() {
		return
	}
	if t.cancelStagedInsert(e) {
		return
	}
	if t.list.containsAt(t.snapshot, e) {
		if t.removes == nil {
			t.removes = make(map[E]struct{})
		}
		t.removes[e] = struct{}{}
	}
}

func (t *Txn[E]) cancelStagedInsert(e E) bool {
	for i, x := range t.headInserts {
		if x == e {
			t.headInserts = append(t.headInserts[:i], t.headInserts[i+1:]...)
			return true
		}
	}
	for i, x := range t.tailInserts {
		if x == e {
			t.tailInserts = append(t.tailInserts[:i], t.tailInserts[i+1:]...)
			return true
		}
	}
	for i, op := range t.afterInserts {
		if op.elm == e {
			t.afterInserts = append(t.afterInserts[:i], t.afterInserts[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports whether e would be present in the list a hypothetical
// commit right now would produce (spec §4.4 contains).
func (t *Txn[E]) Contains(e E) bool {
	if !t.checkActive() {
		return false
	}
	for _, x := range t.headInserts {
		if x == e {
			return true
		}
	}
	for _, x := range t.tailInserts {
		if x == e {
			return true
		}
	}
	for _, op := range t.afterInserts {
		if op.elm == e {
			return true
		}
	}
	if _, removed := t.removes[e]; removed {
		return false
	}
	return t.list.containsAt(t.snapshot, e)
}

// ForEach visits, in the order spec §4.4 defines: staged head inserts in
// LIFO order, then each live node visible at the snapshot and not staged
// for removal (followed immediately by any insert_after staged against that
// node, in staging order), then staged tail inserts in FIFO order. Stops
// early if fn returns false.
func (t *Txn[E]) ForEach(fn func(E) bool) {
	if !t.checkActive() {
		return
	}

	for i := len(t.headInserts) - 1; i >= 0; i-- {
		if !fn(t.headInserts[i]) {
			return
		}
	}

	stopped := false
	t.list.forEachVisible(t.snapshot, func(e E) bool {
		if _, removed := t.removes[e]; removed {
			return true
		}
		if !fn(e) {
			stopped = true
			return false
		}
		for _, op := range t.afterInserts {
			if op.anchor == e {
				if !fn(op.elm) {
					stopped = true
					return false
				}
			}
		}
		return true
	})
	if stopped {
		return
	}

	for _, e := range t.tailInserts {
		if !fn(e) {
			return
		}
	}
}

// Commit applies every staged operation, in the order spec §4.4 steps 1-4
// specify, then releases the active-snapshot slot and runs the reclaimer
// opportunistically (steps 5-6). Each staged operation linearizes through
// the underlying lock-free list operation that applies it; commit is not
// atomic with respect to other committers (spec §4.4's weaker guarantee).
func (t *Txn[E]) Commit() error {
	if !t.state.CompareAndSwap(uint32(txActive), uint32(txCommitted)) {
		return newErrTxnDone("commit")
	}
	t0 := t.list.now()
	defer func() {
		t.part.release()
		t.list.reclaim()
	}()

	for e := range t.removes {
		t.list.Remove(e)
	}

	// insert_after: when multiple staged ops share an anchor, each
	// subsequent one links behind the most-recently-applied sibling rather
	// than directly after the original anchor again, per spec §4.4 step 2.
	lastSibling := make(map[E]E, len(t.afterInserts))
	for _, op := range t.afterInserts {
		effectiveAnchor := op.anchor
		if sibling, ok := lastSibling[op.anchor]; ok {
			effectiveAnchor = sibling
		}
		t.list.InsertAfter(effectiveAnchor, op.elm)
		lastSibling[op.anchor] = op.elm
	}

	for _, e := range t.tailInserts {
		t.list.InsertTail(e)
	}

	// Reverse staging order: each InsertHead prepends, so applying in
	// reverse leaves the first-staged element nearest the head (spec §4.4
	// step 4).
	for i := len(t.headInserts) - 1; i >= 0; i-- {
		t.list.InsertHead(t.headInserts[i])
	}

	ops := len(t.removes) + len(t.headInserts) + len(t.tailInserts) + len(t.afterInserts)
	t.list.cfg.metrics.RecordCommit(time.Duration(t.list.now()-t0), ops)
	return nil
}

// Rollback discards all staging buffers without touching the list. Safe to
// call multiple times and after Commit (idempotent, matching spec §4.4).
// Elements in the remove buffer are unaffected; elements in the insert
// buffers revert to the caller's ownership (there was never a list
// reference to them to begin with).
func (t *Txn[E]) Rollback() {
	if !t.state.CompareAndSwap(uint32(txActive), uint32(txRolledBack)) {
		return
	}
	t.part.release()
}
