package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"pettycash/internal/models"
)

type RepairRepository struct {
	db *sql.DB
}

func NewRepairRepository(db *sql.DB) *RepairRepository {
	return &RepairRepository{db: db}
}

func (r *RepairRepository) SaveReport(ctx context.Context, report *models.RepairReport) error {
	query := `
		INSERT INTO repair_reports (id, scanned, backfilled, skipped, failed, details, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		report.ID,
		report.Scanned,
		report.Backfilled,
		report.Skipped,
		report.Failed,
		pq.Array(report.Details),
		report.StartedAt,
		report.FinishedAt,
	)
	return err
}
