package models

import "time"

// RepairReport summarizes one repair run over requisitions whose terminal
// state lacked a ledger entry.
type RepairReport struct {
	ID         string    `json:"id" db:"id"`
	Scanned    int       `json:"scanned" db:"scanned"`
	Backfilled int       `json:"backfilled" db:"backfilled"`
	Skipped    int       `json:"skipped" db:"skipped"`
	Failed     int       `json:"failed" db:"failed"`
	Details    []string  `json:"details" db:"details"`
	StartedAt  time.Time `json:"started_at" db:"started_at"`
	FinishedAt time.Time `json:"finished_at" db:"finished_at"`
}

// Database schema
const RepairSchema = `
CREATE TABLE IF NOT EXISTS repair_reports (
    id VARCHAR(36) PRIMARY KEY,
    scanned INT NOT NULL,
    backfilled INT NOT NULL,
    skipped INT NOT NULL,
    failed INT NOT NULL,
    details TEXT[],
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP NOT NULL
);
`
