package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type RequisitionStatus string

const (
	StatusDraft           RequisitionStatus = "DRAFT"
	StatusSubmitted       RequisitionStatus = "SUBMITTED"
	StatusAuthorised      RequisitionStatus = "AUTHORISED"
	StatusDisbursed       RequisitionStatus = "DISBURSED"
	StatusReceived        RequisitionStatus = "RECEIVED"
	StatusChangeSubmitted RequisitionStatus = "CHANGE_SUBMITTED"
	StatusCompleted       RequisitionStatus = "COMPLETED"
	StatusRejected        RequisitionStatus = "REJECTED"
)

// Requisition represents a petty-cash request moving through approval and
// settlement. EstimatedTotal is fixed once line items exist; ActualTotal is
// recomputed from line items whenever an actual amount changes.
type Requisition struct {
	ID             string            `json:"id" db:"id"`
	Reference      string            `json:"reference,omitempty" db:"reference"`
	RequesterID    string            `json:"requester_id" db:"requester_id"`
	Description    string            `json:"description" db:"description"`
	EstimatedTotal decimal.Decimal   `json:"estimated_total" db:"estimated_total"`
	ActualTotal    *decimal.Decimal  `json:"actual_total,omitempty" db:"actual_total"`
	Status         RequisitionStatus `json:"status" db:"status"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at" db:"updated_at"`
	Items          []*LineItem       `json:"items,omitempty"`
}

// LineItem is a single expense line belonging to one requisition.
type LineItem struct {
	ID               string           `json:"id" db:"id"`
	RequisitionID    string           `json:"requisition_id" db:"requisition_id"`
	Description      string           `json:"description" db:"description"`
	Quantity         int              `json:"quantity" db:"quantity"`
	UnitPrice        decimal.Decimal  `json:"unit_price" db:"unit_price"`
	EstimatedAmount  decimal.Decimal  `json:"estimated_amount" db:"estimated_amount"`
	ActualAmount     *decimal.Decimal `json:"actual_amount,omitempty" db:"actual_amount"`
	ReceiptReference string           `json:"receipt_reference,omitempty" db:"receipt_reference"`

	// Denormalized classification output.
	AccountCode    string               `json:"account_code,omitempty" db:"account_code"`
	Confidence     *float64             `json:"confidence,omitempty" db:"confidence"`
	ClassifiedBy   ClassificationMethod `json:"classified_by,omitempty" db:"classified_by"`
	RequiresReview bool                 `json:"requires_review" db:"requires_review"`
	CreatedAt      time.Time            `json:"created_at" db:"created_at"`
}

// CreateRequisitionRequest is the payload for POST /requisitions
type CreateRequisitionRequest struct {
	RequesterID string              `json:"requester_id" binding:"required"`
	Description string              `json:"description" binding:"required"`
	Items       []CreateItemRequest `json:"items" binding:"required,min=1"`
}

type CreateItemRequest struct {
	Description string          `json:"description" binding:"required"`
	Quantity    int             `json:"quantity" binding:"required,gt=0"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"required"`
}

// UpdateStatusRequest is the payload for PATCH /requisitions/{id}/status
type UpdateStatusRequest struct {
	Status RequisitionStatus `json:"status" binding:"required"`
	Reason string            `json:"reason"`
}

// UpdateExpensesRequest is the payload for PUT /requisitions/{id}/expenses
type UpdateExpensesRequest struct {
	Items []ExpenseItemRequest `json:"items" binding:"required,min=1"`
}

type ExpenseItemRequest struct {
	ItemID           string          `json:"item_id" binding:"required"`
	ActualAmount     decimal.Decimal `json:"actual_amount" binding:"required"`
	ReceiptReference string          `json:"receipt_reference"`
}

// Database schema
const RequisitionSchema = `
CREATE TABLE IF NOT EXISTS requisitions (
    id VARCHAR(36) PRIMARY KEY,
    reference VARCHAR(20) UNIQUE,
    requester_id VARCHAR(36) NOT NULL,
    description TEXT NOT NULL,
    estimated_total DECIMAL(19, 4) NOT NULL DEFAULT 0,
    actual_total DECIMAL(19, 4),
    status VARCHAR(20) NOT NULL DEFAULT 'DRAFT',
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_requisitions_status ON requisitions(status);
CREATE INDEX IF NOT EXISTS idx_requisitions_requester ON requisitions(requester_id);

CREATE TABLE IF NOT EXISTS line_items (
    id VARCHAR(36) PRIMARY KEY,
    requisition_id VARCHAR(36) NOT NULL REFERENCES requisitions(id),
    description TEXT NOT NULL,
    quantity INT NOT NULL,
    unit_price DECIMAL(19, 4) NOT NULL,
    estimated_amount DECIMAL(19, 4) NOT NULL,
    actual_amount DECIMAL(19, 4),
    receipt_reference VARCHAR(100),
    account_code VARCHAR(20),
    confidence DOUBLE PRECISION,
    classified_by VARCHAR(10),
    requires_review BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_line_items_requisition ON line_items(requisition_id);
`
