package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"pettycash/internal/models"
)

type DisbursementRepository struct {
	db *sql.DB
}

func NewDisbursementRepository(db *sql.DB) *DisbursementRepository {
	return &DisbursementRepository{db: db}
}

func (r *DisbursementRepository) Create(ctx context.Context, d *models.Disbursement) error {
	prepared, err := json.Marshal(d.PreparedDenominations)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO disbursements (id, requisition_id, cashier_id, total_prepared, prepared_denominations, cashier_signature, disbursed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.ExecContext(ctx, query,
		d.ID,
		d.RequisitionID,
		d.CashierID,
		d.TotalPrepared,
		prepared,
		nullString(d.CashierSignature),
		d.DisbursedAt,
		d.UpdatedAt,
	)
	return err
}

func (r *DisbursementRepository) GetByRequisition(ctx context.Context, requisitionID string) (*models.Disbursement, error) {
	query := `
		SELECT id, requisition_id, cashier_id, total_prepared, prepared_denominations,
		       COALESCE(requestor_signature, ''), COALESCE(cashier_signature, ''),
		       returned_denominations, actual_change_amount,
		       confirmed_denominations, confirmed_change_amount, COALESCE(confirmed_by, ''),
		       discrepancy_amount, disbursed_at, updated_at
		FROM disbursements
		WHERE requisition_id = $1
	`
	d := &models.Disbursement{}
	var prepared []byte
	var returned, confirmed sql.NullString
	var actualChange, confirmedChange, discrepancy sql.NullString

	err := r.db.QueryRowContext(ctx, query, requisitionID).Scan(
		&d.ID,
		&d.RequisitionID,
		&d.CashierID,
		&d.TotalPrepared,
		&prepared,
		&d.RequestorSignature,
		&d.CashierSignature,
		&returned,
		&actualChange,
		&confirmed,
		&confirmedChange,
		&d.ConfirmedBy,
		&discrepancy,
		&d.DisbursedAt,
		&d.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Entity: "disbursement for requisition", ID: requisitionID}
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(prepared, &d.PreparedDenominations); err != nil {
		return nil, err
	}
	if returned.Valid {
		if err := json.Unmarshal([]byte(returned.String), &d.ReturnedDenominations); err != nil {
			return nil, err
		}
	}
	if confirmed.Valid {
		if err := json.Unmarshal([]byte(confirmed.String), &d.ConfirmedDenominations); err != nil {
			return nil, err
		}
	}
	if d.ActualChangeAmount, err = nullDecimal(actualChange); err != nil {
		return nil, err
	}
	if d.ConfirmedChangeAmount, err = nullDecimal(confirmedChange); err != nil {
		return nil, err
	}
	if d.DiscrepancyAmount, err = nullDecimal(discrepancy); err != nil {
		return nil, err
	}

	return d, nil
}

// RecordAcknowledgement stores the requestor signature on receipt of cash.
func (r *DisbursementRepository) RecordAcknowledgement(ctx context.Context, requisitionID, signature string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE disbursements SET requestor_signature = $1, updated_at = $2 WHERE requisition_id = $3`,
		signature, time.Now(), requisitionID)
	if err != nil {
		return err
	}
	return requireRow(res, "disbursement for requisition", requisitionID)
}

// RecordReturn stores the requestor-declared change return.
func (r *DisbursementRepository) RecordReturn(ctx context.Context, requisitionID string, denominations models.Denominations, actualChange decimal.Decimal) error {
	data, err := json.Marshal(denominations)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE disbursements SET returned_denominations = $1, actual_change_amount = $2, updated_at = $3 WHERE requisition_id = $4`,
		data, actualChange, time.Now(), requisitionID)
	if err != nil {
		return err
	}
	return requireRow(res, "disbursement for requisition", requisitionID)
}

// RecordConfirmation stores the cashier-verified change and the derived
// discrepancy.
func (r *DisbursementRepository) RecordConfirmation(ctx context.Context, requisitionID string, denominations models.Denominations, confirmedChange, discrepancy decimal.Decimal, confirmedBy string) error {
	data, err := json.Marshal(denominations)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE disbursements SET confirmed_denominations = $1, confirmed_change_amount = $2, discrepancy_amount = $3, confirmed_by = $4, updated_at = $5 WHERE requisition_id = $6`,
		data, confirmedChange, discrepancy, confirmedBy, time.Now(), requisitionID)
	if err != nil {
		return err
	}
	return requireRow(res, "disbursement for requisition", requisitionID)
}

func nullDecimal(s sql.NullString) (*decimal.Decimal, error) {
	if !s.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func requireRow(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &models.NotFoundError{Entity: entity, ID: id}
	}
	return nil
}
