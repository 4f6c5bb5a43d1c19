// SPDX-License-Identifier: MIT

// Package history keeps processed claims for the dashboard and statistics.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Shansgupta/Bajaj-hackathon/internal/claims"
	"github.com/Shansgupta/Bajaj-hackathon/internal/persistence/sqlite"
	"github.com/Shansgupta/Bajaj-hackathon/internal/policy"
)

// Record is one processed claim.
type Record struct {
	ID              string             `json:"id"`
	Query           string             `json:"query"`
	ParsedQuery     claims.ParsedQuery `json:"parsed_query"`
	Decision        string             `json:"decision"`
	Amount          float64            `json:"amount"`
	Justifications  []claims.Clause    `json:"justifications"`
	Explanation     string             `json:"explanation"`
	MedicalDecision policy.Evaluation  `json:"medical_decision"`
	CreatedAt       time.Time          `json:"timestamp"`
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS claims (
		id TEXT PRIMARY KEY,
		query TEXT NOT NULL,
		parsed_query TEXT NOT NULL,
		decision TEXT NOT NULL,
		amount REAL NOT NULL,
		justifications TEXT NOT NULL,
		explanation TEXT NOT NULL,
		medical_decision TEXT NOT NULL,
		created_at_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_claims_created ON claims(created_at_ms);
	CREATE INDEX IF NOT EXISTS idx_claims_decision ON claims(decision);`,
}

// Store is the SQLite claim history.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the history database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sqlite.Open(ctx, path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if err := sqlite.Migrate(ctx, db, migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: %w", err)
	}
	return &Store{db: db}, nil
}

// Save inserts or replaces a record.
func (s *Store) Save(ctx context.Context, r Record) error {
	parsed, err := json.Marshal(r.ParsedQuery)
	if err != nil {
		return fmt.Errorf("history: encode parsed query: %w", err)
	}
	just := r.Justifications
	if just == nil {
		just = []claims.Clause{}
	}
	justJSON, err := json.Marshal(just)
	if err != nil {
		return fmt.Errorf("history: encode justifications: %w", err)
	}
	medical, err := json.Marshal(r.MedicalDecision)
	if err != nil {
		return fmt.Errorf("history: encode medical decision: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
	INSERT INTO claims (id, query, parsed_query, decision, amount, justifications, explanation, medical_decision, created_at_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		query = excluded.query,
		parsed_query = excluded.parsed_query,
		decision = excluded.decision,
		amount = excluded.amount,
		justifications = excluded.justifications,
		explanation = excluded.explanation,
		medical_decision = excluded.medical_decision,
		created_at_ms = excluded.created_at_ms`,
		r.ID, r.Query, string(parsed), r.Decision, r.Amount, string(justJSON), r.Explanation, string(medical), r.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("history: save %s: %w", r.ID, err)
	}
	return nil
}

// List returns up to limit records, newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	q := `SELECT id, query, parsed_query, decision, amount, justifications, explanation, medical_decision, created_at_ms
	FROM claims ORDER BY created_at_ms DESC, id`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var (
			r                     Record
			parsed, just, medical string
			createdMS             int64
		)
		if err := rows.Scan(&r.ID, &r.Query, &parsed, &r.Decision, &r.Amount, &just, &r.Explanation, &medical, &createdMS); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		// Rows are written by Save, so decoding only fails on manual edits.
		_ = json.Unmarshal([]byte(parsed), &r.ParsedQuery)
		_ = json.Unmarshal([]byte(just), &r.Justifications)
		_ = json.Unmarshal([]byte(medical), &r.MedicalDecision)
		r.CreatedAt = time.UnixMilli(createdMS).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of stored claims.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM claims`).Scan(&n); err != nil {
		return 0, fmt.Errorf("history: count: %w", err)
	}
	return n, nil
}

// Check pings the database and runs a quick integrity check.
func (s *Store) Check(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return err
	}
	issues, err := sqlite.VerifyIntegrity(ctx, s.db, "quick")
	if err != nil {
		return err
	}
	if len(issues) > 0 {
		return fmt.Errorf("history database damaged: %s", strings.Join(issues, "; "))
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
