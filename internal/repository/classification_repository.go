package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"pettycash/internal/models"
)

type ClassificationRepository struct {
	db *sql.DB
}

func NewClassificationRepository(db *sql.DB) *ClassificationRepository {
	return &ClassificationRepository{db: db}
}

// GetMemory looks up a prior classification by normalized description key.
func (r *ClassificationRepository) GetMemory(ctx context.Context, key string) (*models.MemoryRecord, error) {
	query := `
		SELECT description_key, description, account_code, confidence, hit_count, updated_at
		FROM classification_memory
		WHERE description_key = $1
	`
	rec := &models.MemoryRecord{}
	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&rec.DescriptionKey,
		&rec.Description,
		&rec.AccountCode,
		&rec.Confidence,
		&rec.HitCount,
		&rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Entity: "memory record", ID: key}
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListMemory returns the most recently used memory records, for similarity
// matching against near-identical descriptions.
func (r *ClassificationRepository) ListMemory(ctx context.Context, limit int) ([]*models.MemoryRecord, error) {
	query := `
		SELECT description_key, description, account_code, confidence, hit_count, updated_at
		FROM classification_memory
		ORDER BY updated_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.MemoryRecord
	for rows.Next() {
		rec := &models.MemoryRecord{}
		err := rows.Scan(&rec.DescriptionKey, &rec.Description, &rec.AccountCode, &rec.Confidence, &rec.HitCount, &rec.UpdatedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// UpsertMemory writes a confirmed classification, last-writer-wins per key.
func (r *ClassificationRepository) UpsertMemory(ctx context.Context, rec *models.MemoryRecord) error {
	query := `
		INSERT INTO classification_memory (description_key, description, account_code, confidence, hit_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (description_key) DO UPDATE SET
			description = EXCLUDED.description,
			account_code = EXCLUDED.account_code,
			confidence = EXCLUDED.confidence,
			hit_count = classification_memory.hit_count + 1,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.DescriptionKey,
		rec.Description,
		rec.AccountCode,
		rec.Confidence,
		rec.HitCount,
		time.Now(),
	)
	return err
}

// ListRules returns classification rules in priority order.
func (r *ClassificationRepository) ListRules(ctx context.Context) ([]*models.ClassificationRule, error) {
	query := `
		SELECT id, keywords, account_code, confidence, priority
		FROM classification_rules
		ORDER BY priority ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*models.ClassificationRule
	for rows.Next() {
		rule := &models.ClassificationRule{}
		err := rows.Scan(&rule.ID, pq.Array(&rule.Keywords), &rule.AccountCode, &rule.Confidence, &rule.Priority)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}
