package activity

import (
	"context"
	"database/sql"
)

// PostgresRepo appends activity events to Postgres.
//
// NOTE: assumes table activity_events exists with an INSERT-only policy.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO activity_events (
  id, user_id, type, customer_id, note_id, message, metadata, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8
)`
	_, err := r.db.ExecContext(ctx, q,
		e.ID, e.UserID, e.Type, e.CustomerID, e.NoteID, e.Message, e.Metadata, e.CreatedAt,
	)
	return err
}
