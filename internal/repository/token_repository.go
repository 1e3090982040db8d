package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo persists refresh token hashes. Raw refresh tokens never reach
// the database; callers hash them first, so a leaked row cannot be
// replayed as a token.
type TokenRepo struct{ db *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db} }

// StoreRefresh records a newly issued refresh token for the user.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, hash string, expiresAt time.Time) error {
	const q = `INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, userID, hash, expiresAt)
	return err
}

// ValidateRefresh resolves a token hash to its user. Expired and revoked
// tokens look exactly like unknown ones: sql.ErrNoRows.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, hash string) (uint64, error) {
	const q = `SELECT user_id FROM refresh_tokens
	           WHERE token_hash = ? AND revoked_at IS NULL AND expires_at > UTC_TIMESTAMP()
	           LIMIT 1`
	var userID uint64
	if err := r.db.QueryRowContext(ctx, q, hash).Scan(&userID); err != nil {
		return 0, err
	}
	return userID, nil
}

// RevokeByHash invalidates a single refresh token, on rotation or logout.
func (r *TokenRepo) RevokeByHash(ctx context.Context, hash string) error {
	const q = `UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP()
	           WHERE token_hash = ? AND revoked_at IS NULL`
	_, err := r.db.ExecContext(ctx, q, hash)
	return err
}

// RevokeAllForUser invalidates every active token the user holds.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	const q = `UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP()
	           WHERE user_id = ? AND revoked_at IS NULL`
	_, err := r.db.ExecContext(ctx, q, userID)
	return err
}
