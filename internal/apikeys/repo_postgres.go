package apikeys

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresRepo persists credentials in Postgres.
//
// NOTE: This repository assumes an api_keys table with user_id as its
// primary key.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Get(ctx context.Context, userID string) (Keys, error) {
	var k Keys
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, vapi_private_key, vapi_public_key, gemini_api_key, created_at, updated_at
		FROM api_keys
		WHERE user_id = $1`, userID).
		Scan(&k.UserID, &k.VapiPrivateKey, &k.VapiPublicKey, &k.GeminiAPIKey, &k.CreatedAt, &k.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Keys{}, ErrNotFound
	}
	if err != nil {
		return Keys{}, err
	}
	return k, nil
}

func (r *PostgresRepo) Upsert(ctx context.Context, k Keys) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO api_keys (user_id, vapi_private_key, vapi_public_key, gemini_api_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			vapi_private_key = EXCLUDED.vapi_private_key,
			vapi_public_key = EXCLUDED.vapi_public_key,
			gemini_api_key = EXCLUDED.gemini_api_key,
			updated_at = EXCLUDED.updated_at`,
		k.UserID, k.VapiPrivateKey, k.VapiPublicKey, k.GeminiAPIKey, k.CreatedAt, k.UpdatedAt)
	return err
}
