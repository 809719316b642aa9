package models

import "time"

type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeIncome    AccountType = "INCOME"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Account is a chart-of-accounts entry. Code is the stable identifier used
// by external systems.
type Account struct {
	ID        string      `json:"id" db:"id"`
	Code      string      `json:"code" db:"code"`
	Name      string      `json:"name" db:"name"`
	Type      AccountType `json:"type" db:"type"`
	Active    bool        `json:"active" db:"active"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

// Database schema
const AccountSchema = `
CREATE TABLE IF NOT EXISTS accounts (
    id VARCHAR(36) PRIMARY KEY,
    code VARCHAR(20) NOT NULL UNIQUE,
    name VARCHAR(100) NOT NULL,
    type VARCHAR(10) NOT NULL,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);

INSERT INTO accounts (id, code, name, type) VALUES
    ('a-1000', '1000', 'Petty Cash Float', 'ASSET'),
    ('a-5010', '5010', 'Stationery & Office Supplies', 'EXPENSE'),
    ('a-5020', '5020', 'Transport & Travel', 'EXPENSE'),
    ('a-5030', '5030', 'Staff Refreshments', 'EXPENSE'),
    ('a-5040', '5040', 'Postage & Courier', 'EXPENSE'),
    ('a-5050', '5050', 'Cleaning Supplies', 'EXPENSE'),
    ('a-5060', '5060', 'Repairs & Maintenance', 'EXPENSE'),
    ('a-5070', '5070', 'Communications & Utilities', 'EXPENSE')
ON CONFLICT (code) DO NOTHING;
`
