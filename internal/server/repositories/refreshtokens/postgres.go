// Package refreshtokens provides a PostgreSQL-backed repository for the
// refresh-token rows used in the credential lifecycle.
package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uslugio/auth/internal/common"
	"github.com/uslugio/auth/internal/dbx"
	"github.com/uslugio/auth/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX (satisfied by both
// *sql.DB and *sql.Tx), so rotation can run it inside a transaction.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new refresh-token row.
func (r *PostgresRepository) Create(ctx context.Context, rec *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, user_id, token, client_info, issued_at, expires_at, used, revoked)
		VALUES ($1, $2, $3, $4, $5, $6, false, false)
	`
	if _, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.UserID, rec.Token, rec.ClientInfo, rec.IssuedAt, rec.ExpiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Find returns the refresh-token row for the given token string.
// If not found, it returns common.ErrorNotFound.
func (r *PostgresRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	query := `
		SELECT id, user_id, token, client_info, issued_at, expires_at, used, revoked
		FROM refresh_tokens
		WHERE token = $1
	`
	rec := &models.RefreshToken{}
	if err := r.db.QueryRowContext(ctx, query, token).Scan(
		&rec.ID, &rec.UserID, &rec.Token, &rec.ClientInfo,
		&rec.IssuedAt, &rec.ExpiresAt, &rec.Used, &rec.Revoked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

// MarkUsed performs the conditional flip that decides concurrent rotations:
// only a row that is still unused and unrevoked is updated, so exactly one
// caller observes true.
func (r *PostgresRepository) MarkUsed(ctx context.Context, token string) (bool, error) {
	query := `
		UPDATE refresh_tokens
		SET used = true
		WHERE token = $1 AND NOT used AND NOT revoked
	`
	res, err := r.db.ExecContext(ctx, query, token)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

// RevokeAllForUser marks every live row of the user revoked.
func (r *PostgresRepository) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked = true
		WHERE user_id = $1 AND NOT revoked
	`
	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// Delete removes a refresh-token row by its token string.
func (r *PostgresRepository) Delete(ctx context.Context, token string) error {
	query := `
		DELETE FROM refresh_tokens
		WHERE token = $1
	`
	if _, err := r.db.ExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
