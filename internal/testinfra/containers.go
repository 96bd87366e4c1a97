// Package testinfra starts throwaway databases for integration tests.
package testinfra

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/holos-company/etldrivers/pkg/etl"
)

const (
	PostgresImage    = "postgres:17-alpine"
	PostgresUser     = "postgres"
	PostgresPassword = "postgres"
	PostgresDB       = "etl_test"

	// EnvTestPostgres points at an existing server instead of a container.
	EnvTestPostgres = "ETL_TEST_PG"
)

// PostgresTarget is a reachable PostgreSQL database and the secret that
// would describe it.
type PostgresTarget struct {
	Secret   map[string]any
	Database string
}

// StartSimplePostgres runs a PostgreSQL container. Failures wrap
// etl.ErrConnection.
func StartSimplePostgres(ctx context.Context) (*PostgresTarget, error) {
	ctr, err := postgres.Run(ctx,
		PostgresImage,
		postgres.WithUsername(PostgresUser),
		postgres.WithPassword(PostgresPassword),
		postgres.WithDatabase(PostgresDB),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: start postgres: %w", etl.ErrConnection, err)
	}

	host, err := ctr.Host(ctx)
	if err != nil {
		ctr.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("%w: get container host: %w", etl.ErrConnection, err)
	}
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	if err != nil {
		ctr.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("%w: get mapped port: %w", etl.ErrConnection, err)
	}

	return &PostgresTarget{
		Secret: map[string]any{
			"server":   host,
			"port":     port.Int(),
			"username": PostgresUser,
			"password": PostgresPassword,
		},
		Database: PostgresDB,
	}, nil
}

// FromConnString describes an existing server given a pgx connection string.
// A malformed string wraps etl.ErrInvalidConfig.
func FromConnString(connString string) (*PostgresTarget, error) {
	cfg, err := pgx.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", etl.ErrInvalidConfig, EnvTestPostgres, err)
	}
	return &PostgresTarget{
		Secret: map[string]any{
			"server":   cfg.Host,
			"port":     int(cfg.Port),
			"username": cfg.User,
			"password": cfg.Password,
		},
		Database: cfg.Database,
	}, nil
}

var (
	sharedOnce   sync.Once
	sharedTarget *PostgresTarget
	sharedErr    error
)

// RequirePostgres returns a database for the test, skipping it in short
// mode or when neither $ETL_TEST_PG nor Docker is available.
// The container is shared by every test in the package.
func RequirePostgres(t *testing.T) *PostgresTarget {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if connString := os.Getenv(EnvTestPostgres); connString != "" {
		target, err := FromConnString(connString)
		if err != nil {
			t.Fatal(err)
		}
		return target
	}

	sharedOnce.Do(func() {
		sharedTarget, sharedErr = StartSimplePostgres(context.Background())
	})
	if sharedErr != nil {
		t.Skipf("%s not set and Docker unavailable: %v", EnvTestPostgres, sharedErr)
	}
	return sharedTarget
}
