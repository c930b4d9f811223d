// Package tokens implements the refresh-token lifecycle: issuance of opaque
// high-entropy tokens, single-use rotation, validity checks and revocation.
//
// A token moves Active -> Used (rotation), Active -> Revoked (invalidate) or
// Active -> Expired (time); all three are terminal for that row. The rotation
// itself is the only operation needing a transactional guarantee from the
// backing store.
package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uslugio/auth/internal/common"
	"github.com/uslugio/auth/internal/dbx"
	"github.com/uslugio/auth/internal/logging"
	"github.com/uslugio/auth/internal/server/models"
	"github.com/uslugio/auth/internal/server/repositories/repomanager"
)

// tokenBytes is the entropy of a refresh token before encoding: 256 bits.
const tokenBytes = 32

// Store drives the refresh-token lifecycle over the repositories.
type Store struct {
	db     *sql.DB
	rm     repomanager.RepositoryManager
	ttl    time.Duration
	logger logging.Logger

	// revokeOnReplay turns replay detection into a compromise response:
	// every sibling token of the subject is revoked. Off by default because
	// an honest double-refresh race would otherwise log out every device.
	revokeOnReplay bool
}

func NewStore(db *sql.DB, rm repomanager.RepositoryManager, ttl time.Duration, revokeOnReplay bool, logger logging.Logger) *Store {
	return &Store{db: db, rm: rm, ttl: ttl, revokeOnReplay: revokeOnReplay, logger: logger}
}

// Issue generates a fresh opaque token for the subject, persists its row and
// returns the token string. Multiple live tokens per subject are expected
// (one per device).
func (s *Store) Issue(ctx context.Context, userID string) (string, error) {
	return s.issue(ctx, s.db, userID)
}

func (s *Store) issue(ctx context.Context, db dbx.DBTX, userID string) (string, error) {
	token, err := common.MakeRandURLString(tokenBytes)
	if err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}

	now := time.Now()
	rec := &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     token,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.rm.RefreshTokens(db).Create(ctx, rec); err != nil {
		return "", err
	}

	s.logger.Info(ctx, "refresh token issued", "user_id", userID, "expires_at", rec.ExpiresAt)
	return token, nil
}

// Rotate exchanges a presented token for a successor. Exactly one caller wins
// a concurrent rotation of the same token; every other caller observes
// ErrTokenAlreadyUsed. Marking the presented row used and inserting the
// successor happen in one transaction, so a partial rotation is never
// observable: if the transaction did not commit, the token is still Active
// and a retry succeeds.
func (s *Store) Rotate(ctx context.Context, presented string) (string, string, error) {
	repo := s.rm.RefreshTokens(s.db)

	rec, err := repo.Find(ctx, presented)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", "", common.ErrInvalidToken
		}
		return "", "", err
	}

	// Expiry is checked before the used flag: an expired token reports
	// Expired even when it was also rotated once long ago.
	if time.Now().After(rec.ExpiresAt) {
		return "", "", common.ErrTokenExpired
	}
	if rec.Revoked {
		return "", "", common.ErrInvalidToken
	}
	if rec.Used {
		return "", "", s.onReplay(ctx, rec)
	}

	var newToken string
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		won, err := s.rm.RefreshTokens(tx).MarkUsed(ctx, presented)
		if err != nil {
			return err
		}
		if !won {
			// Lost the race to a concurrent rotation of the same token.
			return common.ErrTokenAlreadyUsed
		}
		newToken, err = s.issue(ctx, tx, rec.UserID)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrTokenAlreadyUsed) {
			return "", "", s.onReplay(ctx, rec)
		}
		return "", "", err
	}

	s.logger.Info(ctx, "refresh token rotated", "user_id", rec.UserID)
	return newToken, rec.UserID, nil
}

// onReplay records the replay signal and, when the hardening option is on,
// revokes every sibling token of the subject.
func (s *Store) onReplay(ctx context.Context, rec *models.RefreshToken) error {
	s.logger.Warn(ctx, "refresh token replay detected", "user_id", rec.UserID)
	if s.revokeOnReplay {
		if n, err := s.rm.RefreshTokens(s.db).RevokeAllForUser(ctx, rec.UserID); err != nil {
			s.logger.Error(ctx, "revoking sibling tokens after replay", "user_id", rec.UserID, "error", err)
		} else {
			s.logger.Warn(ctx, "sibling tokens revoked after replay", "user_id", rec.UserID, "revoked", n)
		}
	}
	return common.ErrTokenAlreadyUsed
}

// IsValid reports whether the token could be exchanged right now. It never
// mutates the row.
func (s *Store) IsValid(ctx context.Context, token string) (bool, error) {
	rec, err := s.rm.RefreshTokens(s.db).Find(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, err
	}
	return rec.Alive(time.Now()), nil
}

// RevokeAll revokes every live token of the subject: logout-everywhere or
// suspected compromise.
func (s *Store) RevokeAll(ctx context.Context, userID string) error {
	n, err := s.rm.RefreshTokens(s.db).RevokeAllForUser(ctx, userID)
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "refresh tokens revoked", "user_id", userID, "revoked", n)
	return nil
}
