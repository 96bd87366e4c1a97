package db

import (
	"context"
	"fmt"
	"time"

	"github.com/holos-company/etldrivers/pkg/etl"
)

// TokenProvider abstracts cloud token acquisition for database authentication.
type TokenProvider interface {
	// GetToken acquires an OAuth token used in place of a password.
	// Returns the token string and its expiry time.
	GetToken(ctx context.Context) (token string, expiresOn time.Time, err error)

	// String returns a human-readable description for logging.
	// Should NOT include secrets.
	String() string
}

// OAuth scopes Azure AD issues database tokens for.
const (
	AzureSQLScope        = "https://database.windows.net/.default"
	AzurePostgreSQLScope = "https://ossrdbms-aad.database.windows.net/.default"
)

// AzureScopeFor returns the token scope for dialect.
func AzureScopeFor(dialect etl.Dialect) (string, error) {
	switch dialect {
	case etl.DialectMSSQL:
		return AzureSQLScope, nil
	case etl.DialectPostgres:
		return AzurePostgreSQLScope, nil
	}
	return "", fmt.Errorf("%w: Azure auth is not available for %s", etl.ErrUnsupportedAuthMethod, dialect)
}
