package repomanager

import (
	"context"
	"database/sql"

	"github.com/uslugio/auth/internal/dbx"
	"github.com/uslugio/auth/internal/server/repositories/refreshtokens"
	"github.com/uslugio/auth/internal/server/repositories/users"
)

// RepositoryManager vends repository implementations bound to a DBTX, so the
// same factory serves plain-connection reads and transactional rotation.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
