package etl

import (
	"errors"
	"strings"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error kinds using errors.Is().
//
// Example usage:
//
//	err := ldr.Connect(ctx)
//	if errors.Is(err, etl.ErrConnection) {
//	    // Re-create the loader; it cannot reconnect
//	}
var (
	// ErrAuthentication indicates the secret store rejected the token.
	ErrAuthentication = errors.New("authentication failed")

	// ErrSecretRetrieval indicates the secret store could not be read.
	ErrSecretRetrieval = errors.New("secret retrieval failed")

	// ErrInvalidSecret indicates a secret was missing or lacked required keys.
	ErrInvalidSecret = errors.New("invalid secret")

	// ErrConnection indicates the database connection could not be established.
	ErrConnection = errors.New("connection failed")

	// ErrQuery indicates the database driver rejected a statement.
	ErrQuery = errors.New("query failed")

	// ErrNotConnected indicates a data operation was attempted before Connect.
	ErrNotConnected = errors.New("not connected")

	// ErrInvalidInput indicates an argument was rejected before reaching a driver.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")

	// ErrFetchFailed indicates every fetch attempt failed.
	ErrFetchFailed = errors.New("fetch failed")
)

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrUnsupportedAuthMethod):
		return ExitConfigError
	case errors.Is(err, ErrAuthentication):
		return ExitAuthError
	case errors.Is(err, ErrSecretRetrieval), errors.Is(err, ErrInvalidSecret):
		return ExitSecretError
	case errors.Is(err, ErrConnection), errors.Is(err, ErrNotConnected):
		return ExitConnectionError
	case errors.Is(err, ErrQuery):
		return ExitQueryFailed
	case errors.Is(err, ErrFetchFailed):
		return ExitFetchFailed
	case errors.Is(err, ErrInvalidInput):
		return ExitUsageError
	}

	errStr := err.Error()
	for _, prefix := range usagePrefixes {
		if strings.HasPrefix(errStr, prefix) {
			return ExitUsageError
		}
	}
	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}

// usagePrefixes match the flag and argument errors produced by cobra/pflag.
var usagePrefixes = []string{
	"unknown flag",
	"unknown shorthand flag",
	"unknown command",
	"accepts ",
	"requires at least",
	"required flag",
	"invalid argument",
	"flag needs an argument",
}
