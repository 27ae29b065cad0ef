package crm

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"voiceagent-dashboard/pkg/db"
)

// PostgresRepo persists customers and notes in Postgres.
//
// NOTE: This repository assumes the following tables exist:
// - customers (UNIQUE (user_id, phone_number); tags/external_data JSONB)
// - notes (FK customer_id REFERENCES customers(id))
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const pgUniqueViolation = "23505"

func mapInsertErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrConflict
	}
	return err
}

const customerColumns = `
id, user_id, phone_number, name, email, company, tags, status,
airtable_record_id, external_data, created_at, updated_at`

func scanCustomer(row interface{ Scan(...any) error }) (Customer, error) {
	var (
		c            Customer
		tagsRaw      []byte
		externalRaw  []byte
	)
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.PhoneNumber,
		&c.Name,
		&c.Email,
		&c.Company,
		&tagsRaw,
		&c.Status,
		&c.AirtableRecordID,
		&externalRaw,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return Customer{}, err
	}
	if len(tagsRaw) > 0 {
		if err := json.Unmarshal(tagsRaw, &c.Tags); err != nil {
			return Customer{}, fmt.Errorf("decode tags: %w", err)
		}
	}
	if len(externalRaw) > 0 {
		if err := json.Unmarshal(externalRaw, &c.ExternalData); err != nil {
			return Customer{}, fmt.Errorf("decode external_data: %w", err)
		}
	}
	return c, nil
}

func (r *PostgresRepo) ListCustomers(ctx context.Context, userID string, f CustomerFilter) ([]Customer, int, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}

	where := "WHERE user_id = $1"
	args := []any{userID}

	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where += fmt.Sprintf(" AND (name ILIKE $%d OR phone_number ILIKE $%d OR email ILIKE $%d)", len(args), len(args), len(args))
	}
	if f.Status != "" && IsValidStatus(f.Status) {
		args = append(args, f.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	countQ := "SELECT COUNT(*) FROM customers " + where
	if err := r.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, f.Offset)
	q := fmt.Sprintf(`SELECT %s FROM customers %s ORDER BY updated_at DESC LIMIT $%d OFFSET $%d`,
		customerColumns, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *PostgresRepo) GetCustomer(ctx context.Context, userID, id string) (Customer, error) {
	q := fmt.Sprintf(`SELECT %s FROM customers WHERE user_id = $1 AND id = $2`, customerColumns)
	c, err := scanCustomer(r.db.QueryRowContext(ctx, q, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	return c, err
}

func (r *PostgresRepo) FindCustomerByPhone(ctx context.Context, userID, phoneNumber, excludeID string) (Customer, error) {
	q := fmt.Sprintf(`SELECT %s FROM customers WHERE user_id = $1 AND phone_number = $2 AND id <> $3 LIMIT 1`, customerColumns)
	c, err := scanCustomer(r.db.QueryRowContext(ctx, q, userID, phoneNumber, excludeID))
	if errors.Is(err, sql.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	return c, err
}

func (r *PostgresRepo) FindCustomerByExternalIDOrPhone(ctx context.Context, userID, externalID, phoneNumber string) (Customer, error) {
	// external-id condition ordered first so an id match wins over a phone match
	q := fmt.Sprintf(`
SELECT %s FROM customers
WHERE user_id = $1 AND (airtable_record_id = $2 OR phone_number = $3)
ORDER BY (airtable_record_id = $2) DESC
LIMIT 1`, customerColumns)
	c, err := scanCustomer(r.db.QueryRowContext(ctx, q, userID, externalID, phoneNumber))
	if errors.Is(err, sql.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	return c, err
}

func (r *PostgresRepo) InsertCustomer(ctx context.Context, c Customer) error {
	tagsRaw, err := json.Marshal(c.Tags)
	if err != nil {
		return err
	}
	externalRaw, err := json.Marshal(c.ExternalData)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO customers (
  id, user_id, phone_number, name, email, company, tags, status,
  airtable_record_id, external_data, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
)`
	_, err = r.db.ExecContext(ctx, q,
		c.ID, c.UserID, c.PhoneNumber, c.Name, c.Email, c.Company,
		tagsRaw, c.Status, c.AirtableRecordID, externalRaw, c.CreatedAt, c.UpdatedAt,
	)
	return mapInsertErr(err)
}

func (r *PostgresRepo) UpdateCustomer(ctx context.Context, c Customer) error {
	tagsRaw, err := json.Marshal(c.Tags)
	if err != nil {
		return err
	}
	const q = `
UPDATE customers
SET phone_number = $3, name = $4, email = $5, company = $6, tags = $7,
    status = $8, updated_at = $9
WHERE user_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, q,
		c.UserID, c.ID, c.PhoneNumber, c.Name, c.Email, c.Company,
		tagsRaw, c.Status, c.UpdatedAt,
	)
	if err != nil {
		return mapInsertErr(err)
	}
	return requireRow(res)
}

func (r *PostgresRepo) UpdateCustomerContact(ctx context.Context, userID, id, name, email, externalID string, at time.Time) error {
	const q = `
UPDATE customers
SET name = $3, email = $4, airtable_record_id = $5, updated_at = $6
WHERE user_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, q, userID, id, name, email, externalID, at)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *PostgresRepo) DeleteCustomer(ctx context.Context, userID, id string) error {
	// Notes and the customer row go together or not at all.
	return db.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM notes WHERE user_id = $1 AND customer_id = $2`, userID, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`DELETE FROM customers WHERE user_id = $1 AND id = $2`, userID, id)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

const noteColumns = `
id, user_id, customer_id, call_id, title, content, priority, tags,
is_pinned, created_at, updated_at`

func scanNote(row interface{ Scan(...any) error }) (Note, error) {
	var (
		n       Note
		tagsRaw []byte
	)
	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.CustomerID,
		&n.CallID,
		&n.Title,
		&n.Content,
		&n.Priority,
		&tagsRaw,
		&n.IsPinned,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		return Note{}, err
	}
	if len(tagsRaw) > 0 {
		if err := json.Unmarshal(tagsRaw, &n.Tags); err != nil {
			return Note{}, fmt.Errorf("decode tags: %w", err)
		}
	}
	return n, nil
}

func (r *PostgresRepo) ListNotes(ctx context.Context, userID string, f NoteFilter) ([]Note, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}

	where := "WHERE user_id = $1"
	args := []any{userID}

	if f.CustomerID != "" {
		args = append(args, f.CustomerID)
		where += fmt.Sprintf(" AND customer_id = $%d", len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where += fmt.Sprintf(" AND (title ILIKE $%d OR content ILIKE $%d)", len(args), len(args))
	}

	args = append(args, f.Limit)
	q := fmt.Sprintf(`
SELECT %s FROM notes %s
ORDER BY is_pinned DESC, updated_at DESC
LIMIT $%d`, noteColumns, where, len(args))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Note, 0)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) GetNote(ctx context.Context, userID, id string) (Note, error) {
	q := fmt.Sprintf(`SELECT %s FROM notes WHERE user_id = $1 AND id = $2`, noteColumns)
	n, err := scanNote(r.db.QueryRowContext(ctx, q, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, ErrNotFound
	}
	return n, err
}

func (r *PostgresRepo) InsertNote(ctx context.Context, n Note) error {
	tagsRaw, err := json.Marshal(n.Tags)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO notes (
  id, user_id, customer_id, call_id, title, content, priority, tags,
  is_pinned, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
)`
	_, err = r.db.ExecContext(ctx, q,
		n.ID, n.UserID, n.CustomerID, n.CallID, n.Title, n.Content,
		n.Priority, tagsRaw, n.IsPinned, n.CreatedAt, n.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) UpdateNote(ctx context.Context, n Note) error {
	tagsRaw, err := json.Marshal(n.Tags)
	if err != nil {
		return err
	}
	const q = `
UPDATE notes
SET title = $3, content = $4, priority = $5, tags = $6, is_pinned = $7, updated_at = $8
WHERE user_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, q,
		n.UserID, n.ID, n.Title, n.Content, n.Priority, tagsRaw, n.IsPinned, n.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *PostgresRepo) DeleteNote(ctx context.Context, userID, id string) error {
	const q = `DELETE FROM notes WHERE user_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, q, userID, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
