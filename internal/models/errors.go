package models

import "fmt"

// InvalidStateTransition is returned when an operation is attempted from a
// requisition status that does not allow it.
type InvalidStateTransition struct {
	RequisitionID string
	Current       RequisitionStatus
	Attempted     string
}

func (e *InvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid state transition: cannot %s requisition %s in status %s",
		e.Attempted, e.RequisitionID, e.Current)
}

// DenominationMismatch is returned when a denomination breakdown does not sum
// to its declared total.
type DenominationMismatch struct {
	Declared string
	Summed   string
}

func (e *DenominationMismatch) Error() string {
	return fmt.Sprintf("denomination mismatch: declared total %s but denominations sum to %s",
		e.Declared, e.Summed)
}

// ClassificationUnavailable is returned when the AI classifier cannot produce
// a usable result (timeout, transport failure, malformed payload). The cascade
// never substitutes a guessed account code.
type ClassificationUnavailable struct {
	Reason string
	Err    error
}

func (e *ClassificationUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classification unavailable: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("classification unavailable: %s", e.Reason)
}

func (e *ClassificationUnavailable) Unwrap() error { return e.Err }

// DuplicateLedgerPosting signals that a DISBURSEMENT entry already exists for
// the requisition. finalizeDisbursement converts it into a no-op success.
type DuplicateLedgerPosting struct {
	RequisitionID string
	EntryID       string
}

func (e *DuplicateLedgerPosting) Error() string {
	return fmt.Sprintf("duplicate ledger posting: requisition %s already has disbursement entry %s",
		e.RequisitionID, e.EntryID)
}

// LedgerInconsistency means a recomputed running balance disagrees with the
// stored balance_after. This is never auto-corrected.
type LedgerInconsistency struct {
	EntryID  string
	Stored   string
	Computed string
}

func (e *LedgerInconsistency) Error() string {
	return fmt.Sprintf("ledger inconsistency at entry %s: stored balance %s, recomputed %s",
		e.EntryID, e.Stored, e.Computed)
}

// NotFoundError is returned by repositories when a row does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// VoucherUnbalanced is returned when a voucher's lines do not balance.
type VoucherUnbalanced struct {
	VoucherID   string
	TotalDebit  string
	TotalCredit string
}

func (e *VoucherUnbalanced) Error() string {
	return fmt.Sprintf("voucher %s is unbalanced: debits %s != credits %s",
		e.VoucherID, e.TotalDebit, e.TotalCredit)
}
