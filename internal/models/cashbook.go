package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type EntryType string
type EntryStatus string

const (
	EntryTypeOpeningBalance EntryType = "OPENING_BALANCE"
	EntryTypeDisbursement   EntryType = "DISBURSEMENT"
	EntryTypeReturn         EntryType = "RETURN"
	EntryTypeAdjustment     EntryType = "ADJUSTMENT"
	EntryTypeClosingBalance EntryType = "CLOSING_BALANCE"

	EntryStatusActive EntryStatus = "ACTIVE"
	EntryStatusVoided EntryStatus = "VOIDED"
)

// CashbookEntry is one immutable row in the append-only cash journal.
// balance_after[n] = balance_after[n-1] - debit[n] + credit[n].
// Corrections are new ADJUSTMENT entries referencing the original; rows are
// never updated or deleted after insertion (voiding is a status on the
// correcting entry's target, applied as a new adjustment, never an edit).
type CashbookEntry struct {
	ID            string          `json:"id" db:"id"`
	Seq           int64           `json:"seq" db:"seq"`
	EntryDate     time.Time       `json:"entry_date" db:"entry_date"`
	Description   string          `json:"description" db:"description"`
	Debit         decimal.Decimal `json:"debit" db:"debit"`
	Credit        decimal.Decimal `json:"credit" db:"credit"`
	BalanceAfter  decimal.Decimal `json:"balance_after" db:"balance_after"`
	EntryType     EntryType       `json:"entry_type" db:"entry_type"`
	Status        EntryStatus     `json:"status" db:"status"`
	RequisitionID string          `json:"requisition_id,omitempty" db:"requisition_id"`
	AccountCode   string          `json:"account_code,omitempty" db:"account_code"`
	Reference     string          `json:"reference,omitempty" db:"reference"`
	AdjustsEntry  string          `json:"adjusts_entry,omitempty" db:"adjusts_entry"`
	CreatedBy     string          `json:"created_by,omitempty" db:"created_by"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// NextBalance applies one entry to a running balance.
func NextBalance(prev, debit, credit decimal.Decimal) decimal.Decimal {
	return prev.Sub(debit).Add(credit)
}

// PostEntryRequest describes a row to append. BalanceAfter and Seq are
// computed by the ledger, never supplied by callers.
type PostEntryRequest struct {
	EntryDate     time.Time       `json:"entry_date"`
	Description   string          `json:"description" binding:"required"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	EntryType     EntryType       `json:"entry_type" binding:"required"`
	RequisitionID string          `json:"requisition_id"`
	AccountCode   string          `json:"account_code"`
	Reference     string          `json:"reference"`
	AdjustsEntry  string          `json:"adjusts_entry"`
	CreatedBy     string          `json:"created_by"`
}

// VerifyReport is the result of a full running-balance recomputation.
type VerifyReport struct {
	Entries       int      `json:"entries"`
	Consistent    bool     `json:"consistent"`
	Discrepancies []string `json:"discrepancies"`
}

// Database schema
const CashbookSchema = `
CREATE TABLE IF NOT EXISTS cashbook_entries (
    id VARCHAR(36) PRIMARY KEY,
    seq BIGSERIAL UNIQUE,
    entry_date TIMESTAMP NOT NULL,
    description TEXT NOT NULL,
    debit DECIMAL(19, 4) NOT NULL DEFAULT 0,
    credit DECIMAL(19, 4) NOT NULL DEFAULT 0,
    balance_after DECIMAL(19, 4) NOT NULL,
    entry_type VARCHAR(20) NOT NULL,
    status VARCHAR(10) NOT NULL DEFAULT 'ACTIVE',
    requisition_id VARCHAR(36),
    account_code VARCHAR(20),
    reference VARCHAR(100),
    adjusts_entry VARCHAR(36),
    created_by VARCHAR(36),
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_cashbook_requisition ON cashbook_entries(requisition_id);
CREATE INDEX IF NOT EXISTS idx_cashbook_type ON cashbook_entries(entry_type);
`
