package db

import (
	"context"
	"database/sql"
	"fmt"
	"net"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/holos-company/etldrivers/pkg/etl"
)

// GoogleCloudSQLConnector connects to Cloud SQL for PostgreSQL using IAM
// database authentication via the Cloud SQL Go Connector.
//
// Close must be called after the handle returned by Connect is closed.
type GoogleCloudSQLConnector struct {
	target   Target
	instance string
	dialer   *cloudsqlconn.Dialer
}

// NewGoogleCloudSQLConnector creates a connector for Google Cloud SQL IAM authentication.
// instance is the instance connection name in format: project:region:instance
func NewGoogleCloudSQLConnector(target Target, instance string) *GoogleCloudSQLConnector {
	return &GoogleCloudSQLConnector{target: target, instance: instance}
}

// Connect opens the database through a Cloud SQL dialer.
func (c *GoogleCloudSQLConnector) Connect(ctx context.Context) (*sql.DB, error) {
	dialer, err := cloudsqlconn.NewDialer(ctx, cloudsqlconn.WithIAMAuthN())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Cloud SQL dialer: %w", etl.ErrConnection, err)
	}

	dsn := fmt.Sprintf("host=%s user=%s dbname=%s sslmode=disable",
		c.instance, c.target.Credentials.Username, c.target.Database)

	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		dialer.Close()
		return nil, fmt.Errorf("%w: failed to parse connection config: %w", etl.ErrConnection, err)
	}
	connConfig.DialFunc = func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(ctx, c.instance)
	}

	db, err := ping(ctx, stdlib.OpenDB(*connConfig), c.target)
	if err != nil {
		dialer.Close()
		return nil, err
	}

	c.dialer = dialer
	return db, nil
}

// Close releases the Cloud SQL dialer resources.
func (c *GoogleCloudSQLConnector) Close() error {
	if c.dialer != nil {
		err := c.dialer.Close()
		c.dialer = nil
		return err
	}
	return nil
}
