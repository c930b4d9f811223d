// Package services contains the credential-lifecycle business logic: issuing
// sessions, rotating refresh tokens, and OTP issuance/verification. It is the
// only surface exposed to transports.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uslugio/auth/internal/common"
	"github.com/uslugio/auth/internal/logging"
	"github.com/uslugio/auth/internal/server/auth"
	"github.com/uslugio/auth/internal/server/otp"
	"github.com/uslugio/auth/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenStore is the refresh-token lifecycle consumed by the service.
// *tokens.Store is the production implementation.
type TokenStore interface {
	Issue(ctx context.Context, userID string) (string, error)
	Rotate(ctx context.Context, presented string) (string, string, error)
	IsValid(ctx context.Context, token string) (bool, error)
	RevokeAll(ctx context.Context, userID string) error
}

// CredentialService orchestrates the access-token issuer, the refresh-token
// store and the OTP store into the public session protocol.
type CredentialService struct {
	db     *sql.DB
	rm     repomanager.RepositoryManager
	issuer *auth.Issuer
	tokens TokenStore
	otp    otp.Store
	logger logging.Logger
}

func NewCredentialService(db *sql.DB, rm repomanager.RepositoryManager, issuer *auth.Issuer, tokens TokenStore, otpStore otp.Store, logger logging.Logger) *CredentialService {
	return &CredentialService{
		db:     db,
		rm:     rm,
		issuer: issuer,
		tokens: tokens,
		otp:    otpStore,
		logger: logger,
	}
}

// IssueSession mints a fresh access/refresh pair for the subject. There is no
// partial success: when either half fails the caller gets only the error.
func (s *CredentialService) IssueSession(ctx context.Context, userID string) (*TokenPair, error) {
	claims, err := s.freshClaims(ctx, userID)
	if err != nil {
		return nil, err
	}

	access, err := s.issuer.Issue(claims)
	if err != nil {
		return nil, fmt.Errorf("issuing access token: %w", err)
	}
	refresh, err := s.tokens.Issue(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// RefreshSession rotates the presented refresh token and mints a new access
// token bound to the subject's current claims. Roles and provider status are
// re-read on every refresh, so a demoted or promoted subject gets correct
// claims immediately. InvalidToken, Expired and AlreadyUsed propagate from
// the rotation unchanged.
func (s *CredentialService) RefreshSession(ctx context.Context, presented string) (*TokenPair, error) {
	newRefresh, userID, err := s.tokens.Rotate(ctx, presented)
	if err != nil {
		return nil, err
	}

	claims, err := s.freshClaims(ctx, userID)
	if err != nil {
		return nil, err
	}
	access, err := s.issuer.Issue(claims)
	if err != nil {
		return nil, fmt.Errorf("issuing access token: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: newRefresh}, nil
}

// RequestOtp generates a one-time code for the subject key.
func (s *CredentialService) RequestOtp(ctx context.Context, subjectKey string) (string, error) {
	return s.otp.Generate(ctx, subjectKey)
}

// VerifyOtp checks a candidate code for the subject key.
func (s *CredentialService) VerifyOtp(ctx context.Context, subjectKey, candidate string) (bool, error) {
	return s.otp.Verify(ctx, subjectKey, candidate)
}

// ValidateRefreshToken reports whether a refresh token could be exchanged
// right now, without consuming it.
func (s *CredentialService) ValidateRefreshToken(ctx context.Context, token string) (bool, error) {
	return s.tokens.IsValid(ctx, token)
}

// RevokeSessions invalidates every refresh token of the subject
// (logout-everywhere or suspected compromise).
func (s *CredentialService) RevokeSessions(ctx context.Context, userID string) error {
	return s.tokens.RevokeAll(ctx, userID)
}

// freshClaims assembles the claim set from the current user row, role set and
// provider profile. Nothing is cached between calls.
func (s *CredentialService) freshClaims(ctx context.Context, userID string) (auth.Claims, error) {
	repo := s.rm.Users(s.db)

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return auth.Claims{}, common.ErrorUnauthorized
		}
		return auth.Claims{}, err
	}
	roles, err := repo.GetRoles(ctx, userID)
	if err != nil {
		return auth.Claims{}, err
	}
	provider, err := repo.GetProviderProfile(ctx, userID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return auth.Claims{}, err
	}

	return auth.BuildClaims(user, roles, provider), nil
}
