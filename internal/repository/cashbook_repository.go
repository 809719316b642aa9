package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"pettycash/internal/models"
)

// cashbookLockID is the advisory lock key serializing all ledger appends.
// Locking the latest row alone cannot serialize the first insert into an
// empty ledger.
const cashbookLockID = 4217

type CashbookRepository struct {
	db *sql.DB
}

func NewCashbookRepository(db *sql.DB) *CashbookRepository {
	return &CashbookRepository{db: db}
}

// Append inserts a new entry with its running balance, serialized under a
// transaction-scoped advisory lock. The entry's BalanceAfter is computed here
// from the latest stored balance, never by summing history. For DISBURSEMENT
// entries an existing entry for the same requisition is detected under the
// same lock and reported as DuplicateLedgerPosting.
func (r *CashbookRepository) Append(ctx context.Context, entry *models.CashbookEntry) (*models.CashbookEntry, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, cashbookLockID); err != nil {
		return nil, err
	}

	if entry.EntryType == models.EntryTypeDisbursement {
		var existingID string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM cashbook_entries WHERE requisition_id = $1 AND entry_type = $2`,
			entry.RequisitionID, models.EntryTypeDisbursement).Scan(&existingID)
		if err == nil {
			return nil, &models.DuplicateLedgerPosting{
				RequisitionID: entry.RequisitionID,
				EntryID:       existingID,
			}
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}

	current, err := latestBalance(ctx, tx)
	if err != nil {
		return nil, err
	}
	entry.BalanceAfter = models.NextBalance(current, entry.Debit, entry.Credit)

	query := `
		INSERT INTO cashbook_entries
		(id, entry_date, description, debit, credit, balance_after, entry_type, status, requisition_id, account_code, reference, adjusts_entry, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING seq
	`
	err = tx.QueryRowContext(ctx, query,
		entry.ID,
		entry.EntryDate,
		entry.Description,
		entry.Debit,
		entry.Credit,
		entry.BalanceAfter,
		entry.EntryType,
		entry.Status,
		nullString(entry.RequisitionID),
		nullString(entry.AccountCode),
		nullString(entry.Reference),
		nullString(entry.AdjustsEntry),
		nullString(entry.CreatedBy),
		entry.CreatedAt,
	).Scan(&entry.Seq)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return entry, nil
}

// CurrentBalance returns the balance_after of the most recent entry, or zero
// for an empty ledger.
func (r *CashbookRepository) CurrentBalance(ctx context.Context) (decimal.Decimal, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return decimal.Zero, err
	}
	defer tx.Rollback()

	return latestBalance(ctx, tx)
}

// FindDisbursementEntry returns the DISBURSEMENT entry for a requisition, or
// NotFoundError.
func (r *CashbookRepository) FindDisbursementEntry(ctx context.Context, requisitionID string) (*models.CashbookEntry, error) {
	query := selectEntry + ` WHERE requisition_id = $1 AND entry_type = $2`
	entry, err := scanEntry(r.db.QueryRowContext(ctx, query, requisitionID, models.EntryTypeDisbursement))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Entity: "disbursement entry for requisition", ID: requisitionID}
	}
	return entry, err
}

// List returns entries in insertion order, paged by sequence.
func (r *CashbookRepository) List(ctx context.Context, afterSeq int64, limit int) ([]*models.CashbookEntry, error) {
	query := selectEntry + ` WHERE seq > $1 ORDER BY seq ASC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, afterSeq, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.CashbookEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// All streams the full ledger in insertion order for the consistency check.
func (r *CashbookRepository) All(ctx context.Context) ([]*models.CashbookEntry, error) {
	rows, err := r.db.QueryContext(ctx, selectEntry+` ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.CashbookEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

const selectEntry = `
	SELECT id, seq, entry_date, description, debit, credit, balance_after, entry_type, status,
	       COALESCE(requisition_id, ''), COALESCE(account_code, ''), COALESCE(reference, ''),
	       COALESCE(adjusts_entry, ''), COALESCE(created_by, ''), created_at
	FROM cashbook_entries`

func scanEntry(row rowScanner) (*models.CashbookEntry, error) {
	entry := &models.CashbookEntry{}
	err := row.Scan(
		&entry.ID,
		&entry.Seq,
		&entry.EntryDate,
		&entry.Description,
		&entry.Debit,
		&entry.Credit,
		&entry.BalanceAfter,
		&entry.EntryType,
		&entry.Status,
		&entry.RequisitionID,
		&entry.AccountCode,
		&entry.Reference,
		&entry.AdjustsEntry,
		&entry.CreatedBy,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func latestBalance(ctx context.Context, tx *sql.Tx) (decimal.Decimal, error) {
	var b decimal.Decimal
	err := tx.QueryRowContext(ctx,
		`SELECT balance_after FROM cashbook_entries ORDER BY seq DESC LIMIT 1`).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	return b, err
}
