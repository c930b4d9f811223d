// Package users is the credential service's read-only view of the user store:
// identity, role set, and the optional provider profile. It is the claims
// source consulted on every session issue and refresh, so role changes take
// effect on the next rotation.
package users

import (
	"context"

	"github.com/uslugio/auth/internal/server/models"
)

// Repository defines the claims-source operations.
type Repository interface {
	// GetByID returns the user row or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetRoles returns the user's role set; empty slice when none.
	GetRoles(ctx context.Context, userID string) ([]string, error)

	// GetProviderProfile returns the provider extension of the user, or
	// common.ErrorNotFound when the user has none.
	GetProviderProfile(ctx context.Context, userID string) (*models.ProviderProfile, error)
}
