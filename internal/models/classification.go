package models

import "time"

type ClassificationMethod string

const (
	MethodMemory ClassificationMethod = "MEMORY"
	MethodRule   ClassificationMethod = "RULE"
	MethodAI     ClassificationMethod = "AI"
)

// ClassificationResult is the output of the cascade. Confidence is always in
// [0, 0.99]; 1.00 is reserved for explicit manual confirmation. Not persisted
// on its own — denormalized onto LineItem by callers.
type ClassificationResult struct {
	AccountCode    string               `json:"account_code"`
	Confidence     float64              `json:"confidence"`
	Method         ClassificationMethod `json:"method"`
	Reasoning      string               `json:"reasoning,omitempty"`
	RequiresReview bool                 `json:"requires_review"`
}

// ClassificationRequest is the cascade input.
type ClassificationRequest struct {
	Description string `json:"description" binding:"required"`
	Amount      string `json:"amount"`
	Department  string `json:"department"`
}

// MemoryRecord is a prior confirmed classification keyed by normalized
// description. Writes are last-writer-wins per key.
type MemoryRecord struct {
	DescriptionKey string    `json:"description_key" db:"description_key"`
	Description    string    `json:"description" db:"description"`
	AccountCode    string    `json:"account_code" db:"account_code"`
	Confidence     float64   `json:"confidence" db:"confidence"`
	HitCount       int       `json:"hit_count" db:"hit_count"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// ConfirmClassificationRequest feeds a human-confirmed decision back into the
// memory store (the learning loop).
type ConfirmClassificationRequest struct {
	Description string `json:"description" binding:"required"`
	AccountCode string `json:"account_code" binding:"required"`
}

// ClassificationRule is one deterministic keyword -> account mapping.
// Rules are evaluated in Priority order; first match wins.
type ClassificationRule struct {
	ID          string   `json:"id" db:"id"`
	Keywords    []string `json:"keywords" db:"keywords"`
	AccountCode string   `json:"account_code" db:"account_code"`
	Confidence  float64  `json:"confidence" db:"confidence"`
	Priority    int      `json:"priority" db:"priority"`
}

// Database schema
const ClassificationSchema = `
CREATE TABLE IF NOT EXISTS classification_memory (
    description_key VARCHAR(200) PRIMARY KEY,
    description TEXT NOT NULL,
    account_code VARCHAR(20) NOT NULL,
    confidence DOUBLE PRECISION NOT NULL,
    hit_count INT NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS classification_rules (
    id VARCHAR(36) PRIMARY KEY,
    keywords TEXT[] NOT NULL,
    account_code VARCHAR(20) NOT NULL,
    confidence DOUBLE PRECISION NOT NULL,
    priority INT NOT NULL DEFAULT 0
);
`
