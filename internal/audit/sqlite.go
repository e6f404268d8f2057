package audit

import (
	"context"
	"database/sql"
	"time"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS pin_attempts (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL,
    flow TEXT NOT NULL,
    outcome TEXT NOT NULL,
    message TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS pin_attempts_email_created_idx ON pin_attempts (email, created_at DESC)`

// SQLiteRepository stores attempts in a SQLite database. Timestamps are kept
// as UTC milliseconds.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository builds the repository and creates its table.
func NewSQLiteRepository(ctx context.Context, db *sql.DB) (*SQLiteRepository, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, err
	}
	return &SQLiteRepository{db: db}, nil
}

// Record inserts an attempt.
func (r *SQLiteRepository) Record(ctx context.Context, attempt Attempt) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO pin_attempts (id, email, flow, outcome, message, created_at)
        VALUES (?, ?, ?, ?, ?, ?)`, attempt.ID, attempt.Email, attempt.Flow, attempt.Outcome, attempt.Message, attempt.CreatedAt.UTC().UnixMilli())
	return err
}

// ListByEmail returns the newest attempts for email first.
func (r *SQLiteRepository) ListByEmail(ctx context.Context, email string, limit int) ([]Attempt, error) {
	limit = ClampLimit(limit)
	rows, err := r.db.QueryContext(ctx, `SELECT id, email, flow, outcome, message, created_at
        FROM pin_attempts WHERE email = ? ORDER BY created_at DESC LIMIT ?`, email, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var (
			a      Attempt
			millis int64
		)
		if err := rows.Scan(&a.ID, &a.Email, &a.Flow, &a.Outcome, &a.Message, &millis); err != nil {
			return nil, err
		}
		a.CreatedAt = time.UnixMilli(millis).UTC()
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
