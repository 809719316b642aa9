package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Denominations maps a note/coin face value (as a decimal string, e.g. "50"
// or "0.50") to a count. Stored as JSONB.
type Denominations map[string]int

// Sum returns the total value of the multiset. Face values must be positive
// and counts non-negative; anything else is not a multiset and is rejected
// rather than netted away.
func (d Denominations) Sum() (decimal.Decimal, error) {
	total := decimal.Zero
	for value, count := range d {
		v, err := decimal.NewFromString(value)
		if err != nil {
			return decimal.Zero, err
		}
		if !v.IsPositive() {
			return decimal.Zero, fmt.Errorf("denomination %q is not a positive face value", value)
		}
		if count < 0 {
			return decimal.Zero, fmt.Errorf("denomination %q has negative count %d", value, count)
		}
		total = total.Add(v.Mul(decimal.NewFromInt(int64(count))))
	}
	return total, nil
}

// Disbursement is the physical cash handoff for a requisition, one-to-one.
// Returned fields are filled when the requestor declares returned change;
// confirmed fields when the cashier verifies the return.
type Disbursement struct {
	ID                     string           `json:"id" db:"id"`
	RequisitionID          string           `json:"requisition_id" db:"requisition_id"`
	CashierID              string           `json:"cashier_id" db:"cashier_id"`
	TotalPrepared          decimal.Decimal  `json:"total_prepared" db:"total_prepared"`
	PreparedDenominations  Denominations    `json:"prepared_denominations" db:"prepared_denominations"`
	RequestorSignature     string           `json:"requestor_signature,omitempty" db:"requestor_signature"`
	CashierSignature       string           `json:"cashier_signature,omitempty" db:"cashier_signature"`
	ReturnedDenominations  Denominations    `json:"returned_denominations,omitempty" db:"returned_denominations"`
	ActualChangeAmount     *decimal.Decimal `json:"actual_change_amount,omitempty" db:"actual_change_amount"`
	ConfirmedDenominations Denominations    `json:"confirmed_denominations,omitempty" db:"confirmed_denominations"`
	ConfirmedChangeAmount  *decimal.Decimal `json:"confirmed_change_amount,omitempty" db:"confirmed_change_amount"`
	ConfirmedBy            string           `json:"confirmed_by,omitempty" db:"confirmed_by"`
	DiscrepancyAmount      *decimal.Decimal `json:"discrepancy_amount,omitempty" db:"discrepancy_amount"`
	DisbursedAt            time.Time        `json:"disbursed_at" db:"disbursed_at"`
	UpdatedAt              time.Time        `json:"updated_at" db:"updated_at"`
}

// DisburseRequest is the payload for POST /requisitions/{id}/disburse
type DisburseRequest struct {
	CashierID     string          `json:"cashier_id" binding:"required"`
	TotalPrepared decimal.Decimal `json:"total_prepared" binding:"required"`
	Denominations Denominations   `json:"denominations" binding:"required"`
}

// AcknowledgeRequest is the payload for POST /requisitions/{id}/acknowledge
type AcknowledgeRequest struct {
	Signature string `json:"signature" binding:"required"`
}

// ReturnChangeRequest is the payload for POST /requisitions/{id}/return-change
type ReturnChangeRequest struct {
	Denominations      Denominations   `json:"denominations" binding:"required"`
	ActualChangeAmount decimal.Decimal `json:"actual_change_amount"`
}

// ConfirmChangeRequest is the payload for POST /requisitions/{id}/confirm-change
type ConfirmChangeRequest struct {
	Denominations         Denominations   `json:"denominations" binding:"required"`
	ConfirmedChangeAmount decimal.Decimal `json:"confirmed_change_amount"`
	ConfirmedBy           string          `json:"confirmed_by" binding:"required"`
}

// Database schema
const DisbursementSchema = `
CREATE TABLE IF NOT EXISTS disbursements (
    id VARCHAR(36) PRIMARY KEY,
    requisition_id VARCHAR(36) NOT NULL UNIQUE REFERENCES requisitions(id),
    cashier_id VARCHAR(36) NOT NULL,
    total_prepared DECIMAL(19, 4) NOT NULL,
    prepared_denominations JSONB NOT NULL,
    requestor_signature TEXT,
    cashier_signature TEXT,
    returned_denominations JSONB,
    actual_change_amount DECIMAL(19, 4),
    confirmed_denominations JSONB,
    confirmed_change_amount DECIMAL(19, 4),
    confirmed_by VARCHAR(36),
    discrepancy_amount DECIMAL(19, 4),
    disbursed_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);
`
