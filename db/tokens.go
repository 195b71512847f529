// ABOUTME: API token storage for the REST server
// ABOUTME: Tokens are random UUIDs; an empty table means the API is open
package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type TokenRepository struct {
	db *sql.DB
}

func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Issue creates and stores a new token.
func (r *TokenRepository) Issue(ctx context.Context, label string) (string, error) {
	token := uuid.New().String()
	_, err := r.db.ExecContext(ctx, `INSERT INTO sessions (token, label, created_at) VALUES (?, ?, ?)`,
		token, label, time.Now().UTC())
	if err != nil {
		return "", err
	}
	return token, nil
}

func (r *TokenRepository) Valid(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	var found int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE token = ?`, token).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (r *TokenRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n)
	return n, err
}

func (r *TokenRepository) Revoke(ctx context.Context, token string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return err
	}
	return checkAffected(res)
}
