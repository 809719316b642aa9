package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pettycash/internal/models"
)

type VoucherRepository struct {
	db *sql.DB
}

func NewVoucherRepository(db *sql.DB) *VoucherRepository {
	return &VoucherRepository{db: db}
}

// Create inserts a voucher with its lines in one transaction.
func (r *VoucherRepository) Create(ctx context.Context, v *models.Voucher) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	voucherQuery := `
		INSERT INTO vouchers (id, number, requisition_id, description, status, total_debit, total_credit, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.ExecContext(ctx, voucherQuery,
		v.ID,
		v.Number,
		nullString(v.RequisitionID),
		v.Description,
		v.Status,
		v.TotalDebit,
		v.TotalCredit,
		v.CreatedAt,
	)
	if err != nil {
		return err
	}

	lineQuery := `
		INSERT INTO voucher_lines (id, voucher_id, account_code, debit, credit, description)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, line := range v.Lines {
		_, err = tx.ExecContext(ctx, lineQuery,
			line.ID,
			line.VoucherID,
			line.AccountCode,
			line.Debit,
			line.Credit,
			nullString(line.Description),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *VoucherRepository) GetByID(ctx context.Context, id string) (*models.Voucher, error) {
	query := `
		SELECT id, number, COALESCE(requisition_id, ''), description, status, total_debit, total_credit, created_at, posted_at
		FROM vouchers
		WHERE id = $1
	`
	v := &models.Voucher{}
	var postedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&v.ID,
		&v.Number,
		&v.RequisitionID,
		&v.Description,
		&v.Status,
		&v.TotalDebit,
		&v.TotalCredit,
		&v.CreatedAt,
		&postedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Entity: "voucher", ID: id}
	}
	if err != nil {
		return nil, err
	}
	if postedAt.Valid {
		v.PostedAt = &postedAt.Time
	}

	lineRows, err := r.db.QueryContext(ctx,
		`SELECT id, voucher_id, account_code, debit, credit, COALESCE(description, '') FROM voucher_lines WHERE voucher_id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer lineRows.Close()

	for lineRows.Next() {
		line := &models.VoucherLine{}
		err := lineRows.Scan(&line.ID, &line.VoucherID, &line.AccountCode, &line.Debit, &line.Credit, &line.Description)
		if err != nil {
			return nil, err
		}
		v.Lines = append(v.Lines, line)
	}

	return v, lineRows.Err()
}

// MarkPosted flips a draft voucher to POSTED. The status check is in the
// predicate so a voucher cannot be posted twice.
func (r *VoucherRepository) MarkPosted(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE vouchers SET status = $1, posted_at = $2 WHERE id = $3 AND status = $4`,
		models.VoucherStatusPosted, time.Now(), id, models.VoucherStatusDraft)
	if err != nil {
		return err
	}
	return requireRow(res, "draft voucher", id)
}

// CountForYear supports voucher number generation.
func (r *VoucherRepository) CountForYear(ctx context.Context, year int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vouchers WHERE EXTRACT(YEAR FROM created_at) = $1`, year).Scan(&count)
	return count, err
}
