package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// DefaultListLimit caps ListByEmail when the caller passes no limit.
	DefaultListLimit = 50
	// MaxListLimit is the largest page ListByEmail returns.
	MaxListLimit = 200
)

// ClampLimit maps a requested page size onto [1, MaxListLimit], using
// DefaultListLimit for non-positive values.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}

// Repository persists PIN attempts.
type Repository interface {
	Record(ctx context.Context, attempt Attempt) error
	ListByEmail(ctx context.Context, email string, limit int) ([]Attempt, error)
}

const postgresSchema = `CREATE TABLE IF NOT EXISTS pin_attempts (
    id UUID PRIMARY KEY,
    email TEXT NOT NULL,
    flow TEXT NOT NULL,
    outcome TEXT NOT NULL,
    message TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS pin_attempts_email_created_idx ON pin_attempts (email, created_at DESC)`

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed attempt log.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the attempts table when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, postgresSchema)
	return err
}

// Record inserts an attempt.
func (r *PostgresRepository) Record(ctx context.Context, attempt Attempt) error {
	id, err := uuid.Parse(attempt.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO pin_attempts (id, email, flow, outcome, message, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`, id, attempt.Email, attempt.Flow, attempt.Outcome, attempt.Message, attempt.CreatedAt.UTC())
	return err
}

// ListByEmail returns the newest attempts for email first.
func (r *PostgresRepository) ListByEmail(ctx context.Context, email string, limit int) ([]Attempt, error) {
	limit = ClampLimit(limit)
	rows, err := r.db.Query(ctx, `SELECT id, email, flow, outcome, message, created_at
        FROM pin_attempts WHERE email = $1 ORDER BY created_at DESC LIMIT $2`, email, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var (
			id        uuid.UUID
			createdAt time.Time
			a         Attempt
		)
		if err := rows.Scan(&id, &a.Email, &a.Flow, &a.Outcome, &a.Message, &createdAt); err != nil {
			return nil, err
		}
		a.ID = id.String()
		a.CreatedAt = createdAt.UTC()
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
