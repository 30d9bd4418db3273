package list

import (
	"github.com/agilira/go-errors"
)

// Error codes for mvcclist operations. Benign, expected conditions
// (element-not-found, empty-on-remove_head, anchor-not-found) are reported
// through ordinary (E, bool)/bool returns per spec §7 and never reach this
// file — these codes cover only the resource-exhaustion and misuse
// conditions spec §4.6/§7 calls out as actual errors.
const (
	// ErrCodeHazardExhausted means every hazard-registry slot is currently
	// claimed. Transient: it can succeed on retry once any participant
	// releases its slot.
	ErrCodeHazardExhausted errors.ErrorCode = "MVCCLIST_HAZARD_EXHAUSTED"

	// ErrCodeTxnDone means Commit was called on a transaction that already
	// finished (Rollback on a finished transaction is a silent no-op) (misuse per spec §7, reported rather than left
	// as undefined behavior since the state machine already has to track
	// this to be CAS-safe).
	ErrCodeTxnDone errors.ErrorCode = "MVCCLIST_TXN_DONE"
)

const (
	msgHazardExhausted = "hazard registry has no free slots"
	msgTxnDone         = "transaction already committed or rolled back"
)

// newErrHazardExhausted reports that StartTxn could not claim a registry
// slot. NewIterator reports the same condition by returning nil, and bare
// list operations by returning false.
func newErrHazardExhausted(op string) error {
	return errors.NewWithField(ErrCodeHazardExhausted, msgHazardExhausted, "operation", op).
		AsRetryable()
}

// newErrTxnDone reports a Commit on an already-finished Txn.
func newErrTxnDone(op string) error {
	return errors.NewWithField(ErrCodeTxnDone, msgTxnDone, "operation", op)
}
