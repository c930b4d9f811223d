// Package refreshtokens declares the repository contract for refresh-token
// rows in persistent storage. The repository only moves rows between states;
// lifecycle rules (which state transitions are legal and what they mean) live
// in the tokens store that drives it.
package refreshtokens

import (
	"context"

	"github.com/uslugio/auth/internal/server/models"
)

// Repository defines the storage operations behind the refresh-token lifecycle.
type Repository interface {
	// Create persists a new refresh-token row.
	Create(ctx context.Context, rec *models.RefreshToken) error

	// Find looks up a row by its opaque token string and returns it with all
	// lifecycle flags. Returns common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// MarkUsed flips used=true on the row iff it is still unused and not
	// revoked, and reports whether this call won. A false return with a nil
	// error means another writer got there first (or the row is terminal).
	MarkUsed(ctx context.Context, token string) (bool, error)

	// RevokeAllForUser marks every live row of the user revoked and returns
	// the number of rows affected.
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)

	// Delete removes a row by its token string. Deleting a non-existent
	// token is not an error.
	Delete(ctx context.Context, token string) error
}
