package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/venue-reservation/internal/model"
)

// TokenRepo keeps refresh tokens by the SHA-256 of their raw value. Rows
// are never deleted: a revoked token keeps its revoked_at stamp so a
// replayed rotation can be told apart from an unknown token.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

const revokeStmt = "UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP() WHERE revoked_at IS NULL AND "

func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	if _, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)",
		userID, tokenHash, exp.UTC()); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// ValidateRefresh reports the owner of a live token; a revoked or expired
// one is model.ErrNotFound like a missing one.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		owner   uint64
		expires time.Time
		revoked sql.NullTime
	)
	row := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash = ? LIMIT 1", tokenHash)
	if err := row.Scan(&owner, &expires, &revoked); err != nil {
		return 0, notFound(err)
	}
	if revoked.Valid || !expires.After(time.Now().UTC()) {
		return 0, model.ErrNotFound
	}
	return owner, nil
}

// RevokeByHash is single-use: of two concurrent rotations of the same
// token only one sees a row change, the other gets model.ErrNotFound.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	n, err := r.revoke(ctx, "token_hash = ?", tokenHash)
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// RevokeAllForUser succeeds even when the user holds no live token.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.revoke(ctx, "user_id = ?", userID)
	return err
}

func (r *TokenRepo) revoke(ctx context.Context, where string, arg any) (int64, error) {
	res, err := r.DB.ExecContext(ctx, revokeStmt+where, arg)
	if err != nil {
		return 0, fmt.Errorf("revoke refresh token: %w", err)
	}
	return res.RowsAffected()
}
