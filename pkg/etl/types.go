package etl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SecretReader reads a credential map from a secret store.
// ok is false when the store holds no usable payload at path;
// err is reserved for transport or protocol failures.
type SecretReader interface {
	GetSecret(ctx context.Context, path string) (data map[string]any, ok bool, err error)
}

// Credentials is the database secret schema expected by the loader.
type Credentials struct {
	Server   string `mapstructure:"server"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// String describes the credentials without the password.
func (c Credentials) String() string {
	return fmt.Sprintf("%s@%s:%d", c.Username, c.Server, c.Port)
}

// Dialect names a supported SQL backend.
type Dialect string

const (
	DialectMSSQL    Dialect = "mssql"
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// IsValid returns true if the Dialect is one of the supported backends.
func (d Dialect) IsValid() bool {
	switch d {
	case DialectMSSQL, DialectPostgres, DialectSQLite:
		return true
	}
	return false
}

// AuthMethod represents the type of database authentication to use.
type AuthMethod int

const (
	AuthMethodPassword  AuthMethod = iota // Username/Password from the secret
	AuthMethodAzure                       // Azure Entra ID access token
	AuthMethodAWSIAM                      // AWS RDS IAM token (postgres)
	AuthMethodGoogleIAM                   // Google Cloud SQL IAM (postgres)
)

// String returns the configuration spelling of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodPassword:
		return "password"
	case AuthMethodAzure:
		return "azure"
	case AuthMethodAWSIAM:
		return "aws_iam"
	case AuthMethodGoogleIAM:
		return "google_iam"
	default:
		return fmt.Sprintf("unknown(%d)", a)
	}
}

// ParseAuthMethod converts a configuration value into an AuthMethod.
// An empty value selects password authentication.
func ParseAuthMethod(s string) (AuthMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "password":
		return AuthMethodPassword, nil
	case "azure", "entra", "azure_entra_id":
		return AuthMethodAzure, nil
	case "aws", "aws_iam":
		return AuthMethodAWSIAM, nil
	case "google", "google_iam":
		return AuthMethodGoogleIAM, nil
	}
	return AuthMethodPassword, fmt.Errorf("%w: %q", ErrUnsupportedAuthMethod, s)
}

// VaultConfig configures the secret store client.
type VaultConfig struct {
	Address    string
	MountPoint string
	// TokenEnv names the environment variable holding the bearer token.
	TokenEnv string
	// Token overrides TokenEnv when non-empty.
	Token string
}

// LoaderConfig configures the relational bulk loader.
type LoaderConfig struct {
	Dialect    Dialect
	SecretPath string
	Database   string
	AuthMethod AuthMethod
	BatchSize  int

	// Azure Entra ID parameters (AuthMethodAzure). If all three are set a
	// service principal is used, otherwise DefaultAzureCredential.
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string

	AWSRegion string

	// GoogleInstance is the Cloud SQL instance connection name (project:region:instance).
	GoogleInstance string
}

// FetcherConfig configures the web fetcher.
type FetcherConfig struct {
	Proxies           []string
	Browsers          []string
	FallbackUserAgent string
	Timeout           time.Duration
	Retries           int
	RetryDelay        time.Duration
}

// LoadResult reports the outcome of a chunked append.
// On failure it still describes the chunks that were committed.
type LoadResult struct {
	LoadID          uuid.UUID
	Table           string
	TotalRows       int
	TotalChunks     int
	CommittedRows   int
	CommittedChunks int
}

// ChunkResult describes one committed chunk.
type ChunkResult struct {
	LoadID uuid.UUID
	// Index is 1-based.
	Index int
	Total int
	Rows  int
}

// ProxyPicker chooses the proxy used by the next fetch attempt.
// An empty string means no proxy.
type ProxyPicker interface {
	PickProxy() string
}

// UserAgentSource supplies the User-Agent header for the next fetch attempt.
type UserAgentSource interface {
	UserAgent() string
}
