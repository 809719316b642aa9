package repository

import (
	"context"
	"database/sql"
	"errors"

	"pettycash/internal/models"
)

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetByCode(ctx context.Context, code string) (*models.Account, error) {
	query := `
		SELECT id, code, name, type, active, created_at
		FROM accounts
		WHERE code = $1
	`
	a := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, code).Scan(
		&a.ID,
		&a.Code,
		&a.Name,
		&a.Type,
		&a.Active,
		&a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Entity: "account", ID: code}
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AccountRepository) ListActive(ctx context.Context) ([]*models.Account, error) {
	query := `
		SELECT id, code, name, type, active, created_at
		FROM accounts
		WHERE active = TRUE
		ORDER BY code ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		a := &models.Account{}
		err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.Active, &a.CreatedAt)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
