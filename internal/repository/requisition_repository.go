package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"pettycash/internal/models"
)

// referenceLockID is the advisory lock key serializing reference number
// generation, so two concurrent submits cannot compute the same sequence.
const referenceLockID = 4218

type RequisitionRepository struct {
	db *sql.DB
}

func NewRequisitionRepository(db *sql.DB) *RequisitionRepository {
	return &RequisitionRepository{db: db}
}

// Create inserts a requisition with its line items in one transaction.
func (r *RequisitionRepository) Create(ctx context.Context, req *models.Requisition) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	reqQuery := `
		INSERT INTO requisitions (id, reference, requester_id, description, estimated_total, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.ExecContext(ctx, reqQuery,
		req.ID,
		nullString(req.Reference),
		req.RequesterID,
		req.Description,
		req.EstimatedTotal,
		req.Status,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		return err
	}

	itemQuery := `
		INSERT INTO line_items (id, requisition_id, description, quantity, unit_price, estimated_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, item := range req.Items {
		_, err = tx.ExecContext(ctx, itemQuery,
			item.ID,
			item.RequisitionID,
			item.Description,
			item.Quantity,
			item.UnitPrice,
			item.EstimatedAmount,
			item.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *RequisitionRepository) GetByID(ctx context.Context, id string) (*models.Requisition, error) {
	query := `
		SELECT id, COALESCE(reference, ''), requester_id, description, estimated_total, actual_total, status, created_at, updated_at
		FROM requisitions
		WHERE id = $1
	`
	req, err := scanRequisition(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	items, err := r.getItems(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Items = items

	return req, nil
}

func (r *RequisitionRepository) ListByStatus(ctx context.Context, statuses ...models.RequisitionStatus) ([]*models.Requisition, error) {
	query := `
		SELECT id, COALESCE(reference, ''), requester_id, description, estimated_total, actual_total, status, created_at, updated_at
		FROM requisitions
		WHERE status = ANY($1)
		ORDER BY created_at ASC
	`
	strs := make([]string, len(statuses))
	for i, s := range statuses {
		strs[i] = string(s)
	}

	rows, err := r.db.QueryContext(ctx, query, pq.Array(strs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requisitions []*models.Requisition
	for rows.Next() {
		req, err := scanRequisition(rows)
		if err != nil {
			return nil, err
		}
		requisitions = append(requisitions, req)
	}

	return requisitions, rows.Err()
}

// Transition applies a status change, serialized per requisition with a row
// lock. The check against the expected current status happens under the lock
// so two concurrent transitions cannot both succeed.
func (r *RequisitionRepository) Transition(ctx context.Context, id string, from []models.RequisitionStatus, to models.RequisitionStatus, operation string) (*models.Requisition, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	req, err := lockRequisition(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, s := range from {
		if req.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, &models.InvalidStateTransition{
			RequisitionID: id,
			Current:       req.Status,
			Attempted:     operation,
		}
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx,
		`UPDATE requisitions SET status = $1, updated_at = $2 WHERE id = $3`,
		to, now, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	req.Status = to
	req.UpdatedAt = now
	return req, nil
}

// AssignReference generates and stores the next PC-YYYY-NNNN reference in a
// single transaction. The advisory lock serializes the count-and-write so the
// UNIQUE constraint on reference never fires under concurrent submits.
func (r *RequisitionRepository) AssignReference(ctx context.Context, id string, year int) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, referenceLockID); err != nil {
		return "", err
	}

	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM requisitions WHERE reference LIKE $1`,
		fmt.Sprintf("PC-%d-%%", year)).Scan(&count)
	if err != nil {
		return "", err
	}

	reference := fmt.Sprintf("PC-%d-%04d", year, count+1)
	_, err = tx.ExecContext(ctx,
		`UPDATE requisitions SET reference = $1, updated_at = $2 WHERE id = $3`,
		reference, time.Now(), id)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return reference, nil
}

// UpdateExpenses writes actual amounts onto line items and recomputes
// actual_total from all items, in one transaction under the requisition lock.
func (r *RequisitionRepository) UpdateExpenses(ctx context.Context, id string, editable []models.RequisitionStatus, updates []models.ExpenseItemRequest) (*models.Requisition, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	req, err := lockRequisition(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, s := range editable {
		if req.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, &models.InvalidStateTransition{
			RequisitionID: id,
			Current:       req.Status,
			Attempted:     "updateExpenses",
		}
	}

	for _, u := range updates {
		res, err := tx.ExecContext(ctx,
			`UPDATE line_items SET actual_amount = $1, receipt_reference = $2 WHERE id = $3 AND requisition_id = $4`,
			u.ActualAmount, nullString(u.ReceiptReference), u.ItemID, id)
		if err != nil {
			return nil, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, &models.NotFoundError{Entity: "line item", ID: u.ItemID}
		}
	}

	// Recompute actual_total from all items, never hand-edited.
	var actualTotal decimal.Decimal
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(actual_amount), 0) FROM line_items WHERE requisition_id = $1 AND actual_amount IS NOT NULL`,
		id).Scan(&actualTotal)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx,
		`UPDATE requisitions SET actual_total = $1, updated_at = $2 WHERE id = $3`,
		actualTotal, now, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	req.ActualTotal = &actualTotal
	req.UpdatedAt = now
	req.Items, err = r.getItems(ctx, id)
	if err != nil {
		return nil, err
	}
	return req, nil
}

// UpdateItemClassification denormalizes a cascade result onto a line item.
func (r *RequisitionRepository) UpdateItemClassification(ctx context.Context, itemID string, result *models.ClassificationResult) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE line_items SET account_code = $1, confidence = $2, classified_by = $3, requires_review = $4 WHERE id = $5`,
		result.AccountCode, result.Confidence, result.Method, result.RequiresReview, itemID)
	return err
}

func (r *RequisitionRepository) getItems(ctx context.Context, requisitionID string) ([]*models.LineItem, error) {
	query := `
		SELECT id, requisition_id, description, quantity, unit_price, estimated_amount, actual_amount,
		       COALESCE(receipt_reference, ''), COALESCE(account_code, ''), confidence, COALESCE(classified_by, ''), requires_review, created_at
		FROM line_items
		WHERE requisition_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, requisitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.LineItem
	for rows.Next() {
		item := &models.LineItem{}
		var actual sql.NullString
		var confidence sql.NullFloat64
		var method string
		err := rows.Scan(
			&item.ID,
			&item.RequisitionID,
			&item.Description,
			&item.Quantity,
			&item.UnitPrice,
			&item.EstimatedAmount,
			&actual,
			&item.ReceiptReference,
			&item.AccountCode,
			&confidence,
			&method,
			&item.RequiresReview,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if actual.Valid {
			d, err := decimal.NewFromString(actual.String)
			if err != nil {
				return nil, err
			}
			item.ActualAmount = &d
		}
		if confidence.Valid {
			item.Confidence = &confidence.Float64
		}
		item.ClassifiedBy = models.ClassificationMethod(method)
		items = append(items, item)
	}

	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequisition(row rowScanner) (*models.Requisition, error) {
	req := &models.Requisition{}
	var actual sql.NullString
	err := row.Scan(
		&req.ID,
		&req.Reference,
		&req.RequesterID,
		&req.Description,
		&req.EstimatedTotal,
		&actual,
		&req.Status,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Entity: "requisition", ID: ""}
	}
	if err != nil {
		return nil, err
	}
	if actual.Valid {
		d, err := decimal.NewFromString(actual.String)
		if err != nil {
			return nil, err
		}
		req.ActualTotal = &d
	}
	return req, nil
}

func lockRequisition(ctx context.Context, tx *sql.Tx, id string) (*models.Requisition, error) {
	query := `
		SELECT id, COALESCE(reference, ''), requester_id, description, estimated_total, actual_total, status, created_at, updated_at
		FROM requisitions
		WHERE id = $1
		FOR UPDATE
	`
	req, err := scanRequisition(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		var nf *models.NotFoundError
		if errors.As(err, &nf) {
			return nil, &models.NotFoundError{Entity: "requisition", ID: id}
		}
		return nil, err
	}
	return req, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
