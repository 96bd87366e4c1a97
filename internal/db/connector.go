package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	mssql "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"

	"github.com/holos-company/etldrivers/pkg/etl"
)

// Connector opens the single database handle used by a loader.
type Connector interface {
	// Connect opens and pings the database. The returned handle allows
	// exactly one open connection.
	Connect(ctx context.Context) (*sql.DB, error)

	// Close releases resources held by the connector itself (dialers).
	// It does not close handles returned by Connect.
	Close() error
}

// Target groups what every connector needs to reach one database.
type Target struct {
	Dialect     Dialect
	Credentials etl.Credentials
	Database    string
}

func (t Target) String() string {
	return fmt.Sprintf("%s database %q on %s", t.Dialect.Name(), t.Database, StripProtocol(t.Credentials.Server))
}

// singleConnection pins a handle to one physical connection.
func singleConnection(db *sql.DB) {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
}

func ping(ctx context.Context, db *sql.DB, target Target) (*sql.DB, error) {
	singleConnection(db)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, wrapConnectionError(err, target)
	}
	return db, nil
}

// StandardConnector authenticates with the username and password from the secret.
type StandardConnector struct {
	target Target
}

// NewStandardConnector creates a StandardConnector for target.
func NewStandardConnector(target Target) *StandardConnector {
	return &StandardConnector{target: target}
}

// Connect opens the database with password authentication.
func (c *StandardConnector) Connect(ctx context.Context) (*sql.DB, error) {
	dsn := c.target.Dialect.DSN(c.target.Credentials, c.target.Database, true)
	db, err := sql.Open(c.target.Dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", etl.ErrConnection, c.target, err)
	}
	return ping(ctx, db, c.target)
}

// Close is a no-op.
func (c *StandardConnector) Close() error { return nil }

// TokenBasedConnector authenticates with short-lived tokens (Azure Entra ID,
// AWS IAM). A token is requested for every new physical connection.
type TokenBasedConnector struct {
	target        Target
	tokenProvider TokenProvider
	providerName  string
}

// NewTokenBasedConnector creates a connector that uses a TokenProvider for authentication.
// providerName is used in error messages (e.g., "AWS IAM", "Azure").
func NewTokenBasedConnector(target Target, tokenProvider TokenProvider, providerName string) *TokenBasedConnector {
	return &TokenBasedConnector{
		target:        target,
		tokenProvider: tokenProvider,
		providerName:  providerName,
	}
}

// Connect opens the database, fetching a token through the provider.
func (c *TokenBasedConnector) Connect(ctx context.Context) (*sql.DB, error) {
	switch c.target.Dialect.Name() {
	case etl.DialectMSSQL:
		dsn := c.target.Dialect.DSN(c.target.Credentials, c.target.Database, false)
		connector, err := mssql.NewAccessTokenConnector(dsn, func() (string, error) {
			tctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return c.token(tctx)
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %s token connector: %w", etl.ErrConnection, c.providerName, err)
		}
		return ping(ctx, sql.OpenDB(connector), c.target)

	case etl.DialectPostgres:
		dsn := c.target.Dialect.DSN(c.target.Credentials, c.target.Database, false)
		connConfig, err := pgx.ParseConfig(dsn)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse connection config: %w", etl.ErrConnection, err)
		}
		db := stdlib.OpenDB(*connConfig, stdlib.OptionBeforeConnect(func(ctx context.Context, cc *pgx.ConnConfig) error {
			token, err := c.token(ctx)
			if err != nil {
				return err
			}
			cc.Password = token
			return nil
		}))
		return ping(ctx, db, c.target)
	}
	return nil, fmt.Errorf("%w: %s auth is not available for %s", etl.ErrUnsupportedAuthMethod, c.providerName, c.target.Dialect.Name())
}

func (c *TokenBasedConnector) token(ctx context.Context) (string, error) {
	token, _, err := c.tokenProvider.GetToken(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to acquire %s token: %w", c.providerName, err)
	}
	return token, nil
}

// Close is a no-op.
func (c *TokenBasedConnector) Close() error { return nil }

// NewConnector is a factory function that creates the appropriate Connector
// for the configured dialect and auth method.
func NewConnector(target Target, cfg etl.LoaderConfig) (Connector, error) {
	switch cfg.AuthMethod {
	case etl.AuthMethodPassword:
		return NewStandardConnector(target), nil
	case etl.AuthMethodAzure:
		return newAzureConnector(target, cfg)
	case etl.AuthMethodAWSIAM:
		return newAWSConnector(target, cfg)
	case etl.AuthMethodGoogleIAM:
		return newGoogleConnector(target, cfg)
	default:
		return nil, fmt.Errorf("unsupported auth method %v: %w", cfg.AuthMethod, etl.ErrUnsupportedAuthMethod)
	}
}

// newAzureConnector uses a service principal when tenant, client and secret
// are all configured, otherwise the DefaultAzureCredential chain.
func newAzureConnector(target Target, cfg etl.LoaderConfig) (Connector, error) {
	scope, err := AzureScopeFor(target.Dialect.Name())
	if err != nil {
		return nil, err
	}

	var tokenProvider TokenProvider
	if cfg.AzureTenantID != "" && cfg.AzureClientID != "" && cfg.AzureClientSecret != "" {
		tokenProvider, err = NewAzureServicePrincipalProvider(cfg.AzureTenantID, cfg.AzureClientID, cfg.AzureClientSecret, scope)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Service Principal provider: %w", err)
		}
	} else {
		tokenProvider, err = NewAzureDefaultCredentialProvider(scope)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Default Credential provider: %w", err)
		}
	}

	return NewTokenBasedConnector(target, tokenProvider, "Azure"), nil
}

// newAWSConnector creates a token-based connector with the AWS IAM token provider.
func newAWSConnector(target Target, cfg etl.LoaderConfig) (Connector, error) {
	if target.Dialect.Name() != etl.DialectPostgres {
		return nil, fmt.Errorf("%w: AWS IAM auth requires the postgres dialect", etl.ErrUnsupportedAuthMethod)
	}
	endpoint := hostPort(target.Credentials, target.Dialect.DefaultPort())

	tokenProvider, err := NewAWSIAMTokenProvider(endpoint, cfg.AWSRegion, target.Credentials.Username)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create AWS IAM token provider: %w", etl.ErrInvalidConfig, err)
	}

	return NewTokenBasedConnector(target, tokenProvider, "AWS IAM"), nil
}

// newGoogleConnector creates a GoogleCloudSQLConnector for Cloud SQL IAM authentication.
func newGoogleConnector(target Target, cfg etl.LoaderConfig) (Connector, error) {
	if target.Dialect.Name() != etl.DialectPostgres {
		return nil, fmt.Errorf("%w: Google Cloud SQL IAM auth requires the postgres dialect", etl.ErrUnsupportedAuthMethod)
	}
	if cfg.GoogleInstance == "" {
		return nil, fmt.Errorf("%w: Google Cloud SQL IAM auth requires google_instance (project:region:instance)", etl.ErrInvalidConfig)
	}
	if target.Credentials.Username == "" {
		return nil, fmt.Errorf("%w: Google Cloud SQL IAM auth requires a username in the secret", etl.ErrInvalidSecret)
	}

	return NewGoogleCloudSQLConnector(target, cfg.GoogleInstance), nil
}

// wrapConnectionError wraps raw driver connection errors with actionable guidance.
func wrapConnectionError(err error, target Target) error {
	errStr := strings.ToLower(err.Error())
	host := StripProtocol(target.Credentials.Server)

	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		return fmt.Errorf(`%w: connection refused by %s

Possible causes:
  - The database server is not running
  - Wrong host or port in the secret
  - Firewall blocking the connection

Original error: %w`, etl.ErrConnection, host, err)

	case strings.Contains(errStr, "no such host"):
		return fmt.Errorf(`%w: cannot resolve host %q

Possible causes:
  - Hostname in the secret is misspelled
  - DNS is not configured or reachable

Original error: %w`, etl.ErrConnection, host, err)

	case strings.Contains(errStr, "login failed") || strings.Contains(errStr, "password authentication failed"):
		return fmt.Errorf(`%w: login failed for database %q

Possible causes:
  - The secret holds a stale password
  - The user has no access to the database

Original error: %w`, etl.ErrConnection, target.Database, err)

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		return fmt.Errorf(`%w: connection timed out to %s

Possible causes:
  - Server is overloaded or unresponsive
  - Client IP not allowed by the server firewall

Original error: %w`, etl.ErrConnection, host, err)

	default:
		return fmt.Errorf("%w: failed to connect to %s: %w", etl.ErrConnection, target, err)
	}
}
