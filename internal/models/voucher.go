package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type VoucherStatus string

const (
	VoucherStatusDraft  VoucherStatus = "DRAFT"
	VoucherStatusPosted VoucherStatus = "POSTED"
)

// Voucher groups double-entry lines. Lines must balance before posting;
// totals are recomputed from lines, never hand-edited.
type Voucher struct {
	ID            string          `json:"id" db:"id"`
	Number        string          `json:"number" db:"number"`
	RequisitionID string          `json:"requisition_id,omitempty" db:"requisition_id"`
	Description   string          `json:"description" db:"description"`
	Status        VoucherStatus   `json:"status" db:"status"`
	TotalDebit    decimal.Decimal `json:"total_debit" db:"total_debit"`
	TotalCredit   decimal.Decimal `json:"total_credit" db:"total_credit"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	PostedAt      *time.Time      `json:"posted_at,omitempty" db:"posted_at"`
	Lines         []*VoucherLine  `json:"lines,omitempty"`
}

// VoucherLine is one debit or credit side of a voucher.
type VoucherLine struct {
	ID          string          `json:"id" db:"id"`
	VoucherID   string          `json:"voucher_id" db:"voucher_id"`
	AccountCode string          `json:"account_code" db:"account_code"`
	Debit       decimal.Decimal `json:"debit" db:"debit"`
	Credit      decimal.Decimal `json:"credit" db:"credit"`
	Description string          `json:"description" db:"description"`
}

// CreateVoucherRequest is the payload for POST /vouchers
type CreateVoucherRequest struct {
	RequisitionID string               `json:"requisition_id"`
	Description   string               `json:"description" binding:"required"`
	Lines         []VoucherLineRequest `json:"lines" binding:"required,min=2"`
}

type VoucherLineRequest struct {
	AccountCode string          `json:"account_code" binding:"required"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description"`
}

// Database schema
const VoucherSchema = `
CREATE TABLE IF NOT EXISTS vouchers (
    id VARCHAR(36) PRIMARY KEY,
    number VARCHAR(20) NOT NULL UNIQUE,
    requisition_id VARCHAR(36),
    description TEXT NOT NULL,
    status VARCHAR(10) NOT NULL DEFAULT 'DRAFT',
    total_debit DECIMAL(19, 4) NOT NULL DEFAULT 0,
    total_credit DECIMAL(19, 4) NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    posted_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS voucher_lines (
    id VARCHAR(36) PRIMARY KEY,
    voucher_id VARCHAR(36) NOT NULL REFERENCES vouchers(id),
    account_code VARCHAR(20) NOT NULL,
    debit DECIMAL(19, 4) NOT NULL DEFAULT 0,
    credit DECIMAL(19, 4) NOT NULL DEFAULT 0,
    description TEXT
);
CREATE INDEX IF NOT EXISTS idx_voucher_lines_voucher ON voucher_lines(voucher_id);
`
