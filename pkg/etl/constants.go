package etl

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Command completed successfully
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid input)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration
	ExitConnectionError = 11 // Failed to connect to database
	ExitAuthError       = 12 // Secret store token rejected
	ExitSecretError     = 13 // Secret missing, malformed or unreadable
	ExitQueryFailed     = 14 // SQL execution failed
	ExitFetchFailed     = 15 // All fetch attempts failed
)

// Secret store defaults.
const (
	DefaultVaultAddress  = "https://cluster-hashivault-0001-01.holos.company:8200"
	DefaultVaultMount    = "holos-company/data"
	DefaultVaultTokenEnv = "HASHI_VAULT_APP_TOKEN"
)

// Loader defaults.
const (
	// DefaultSecretPath identifies the credentials of the BI database server.
	DefaultSecretPath = "holos_adm@mistral-bi-server.database.windows.net"

	DefaultDatabase = "mistral_bi"

	// DefaultBatchSize is the maximum number of rows committed per chunk.
	DefaultBatchSize = 10000

	// InsertTimeColumn is appended to every table created from a frame.
	InsertTimeColumn = "insert_time"
)

// Fetcher defaults.
const (
	DefaultFetchTimeout    = 5 * time.Second
	DefaultFetchRetries    = 3
	DefaultFetchRetryDelay = 3 * time.Second

	DefaultFallbackUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:116.0) Gecko/20100101 Firefox/116.0"
)

// DefaultProxies is the proxy pool used when none is configured.
var DefaultProxies = []string{
	"http://196.51.132.133:8800",
	"http://196.51.129.230:8800",
	"http://196.51.135.162:8800",
	"http://196.51.129.252:8800",
}

// DefaultBrowsers restricts generated user agents to these families.
var DefaultBrowsers = []string{"edge", "chrome", "firefox"}

// ConfigFileName is the project configuration file looked up in the working directory.
const ConfigFileName = "etl.yaml"
