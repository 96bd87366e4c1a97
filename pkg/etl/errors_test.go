package etl_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/holos-company/etldrivers/pkg/etl"
)

func TestExitCodeForError_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unknown flag", errors.New("unknown flag: --foo"), etl.ExitUsageError},
		{"unknown shorthand flag", errors.New("unknown shorthand flag: 'x' in -x"), etl.ExitUsageError},
		{"accepts args", errors.New("accepts 1 arg(s), received 0"), etl.ExitUsageError},
		{"required flag", errors.New(`required flag(s) "csv" not set`), etl.ExitUsageError},
		{"invalid argument", errors.New(`invalid argument "abc" for "--retries"`), etl.ExitUsageError},
		{"general error", errors.New("something went wrong"), etl.ExitGeneralError},
		{"nil error", nil, etl.ExitSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := etl.ExitCodeForError(tt.err); got != tt.want {
				t.Errorf("ExitCodeForError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestExitCodeForError_Sentinels(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{etl.ErrInvalidConfig, etl.ExitConfigError},
		{etl.ErrUnsupportedAuthMethod, etl.ExitConfigError},
		{etl.ErrAuthentication, etl.ExitAuthError},
		{etl.ErrSecretRetrieval, etl.ExitSecretError},
		{etl.ErrInvalidSecret, etl.ExitSecretError},
		{etl.ErrConnection, etl.ExitConnectionError},
		{etl.ErrNotConnected, etl.ExitConnectionError},
		{etl.ErrQuery, etl.ExitQueryFailed},
		{etl.ErrFetchFailed, etl.ExitFetchFailed},
		{etl.ErrInvalidInput, etl.ExitUsageError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			if got := etl.ExitCodeForError(wrapped); got != tt.want {
				t.Errorf("ExitCodeForError(%v) = %d, want %d", wrapped, got, tt.want)
			}
		})
	}
}

func TestExitCodeForError_ConnectionPatterns(t *testing.T) {
	for _, msg := range []string{
		"dial tcp 127.0.0.1:1433: connect: connection refused",
		"lookup db.invalid: no such host",
		"failed to connect to `host=x`",
	} {
		if got := etl.ExitCodeForError(errors.New(msg)); got != etl.ExitConnectionError {
			t.Errorf("ExitCodeForError(%q) = %d, want %d", msg, got, etl.ExitConnectionError)
		}
	}
}
