package loader

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/holos-company/etldrivers/internal/db"
	"github.com/holos-company/etldrivers/pkg/etl"
)

// ConnectorFactory builds the connector for a target. Tests replace it.
type ConnectorFactory func(target db.Target, cfg etl.LoaderConfig) (db.Connector, error)

// Loader owns one database connection and loads frames into it.
// It is not safe for concurrent use.
type Loader struct {
	cfg          etl.LoaderConfig
	dialect      db.Dialect
	target       db.Target
	logger       etl.Logger
	newConnector ConnectorFactory

	connector db.Connector
	db        *sql.DB
}

// Option customises a Loader at construction.
type Option func(*Loader)

// WithConnectorFactory overrides how the connector is built.
func WithConnectorFactory(f ConnectorFactory) Option {
	return func(l *Loader) { l.newConnector = f }
}

// New reads the credential secret at cfg.SecretPath and prepares a Loader.
// It does not connect.
//
// The sqlite dialect addresses a local file named by cfg.Database and
// accepts a nil secrets reader.
func New(ctx context.Context, secrets etl.SecretReader, cfg etl.LoaderConfig, logger etl.Logger, opts ...Option) (*Loader, error) {
	if cfg.Dialect == "" {
		cfg.Dialect = etl.DialectMSSQL
	}
	if cfg.SecretPath == "" {
		cfg.SecretPath = etl.DefaultSecretPath
	}
	if cfg.Database == "" {
		cfg.Database = etl.DefaultDatabase
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = etl.DefaultBatchSize
	}

	dialect, err := db.DialectFor(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	var creds etl.Credentials
	switch {
	case secrets != nil:
		creds, err = readCredentials(ctx, secrets, cfg.SecretPath)
		if err != nil {
			logger.Error("Failed to read database credentials at %s: %v", cfg.SecretPath, err)
			return nil, err
		}
	case cfg.Dialect != etl.DialectSQLite:
		return nil, fmt.Errorf("%w: a secret store is required for the %s dialect", etl.ErrInvalidConfig, cfg.Dialect)
	}

	if cfg.Dialect != etl.DialectSQLite {
		if err := checkCredentials(creds, cfg.AuthMethod); err != nil {
			logger.Error("Secret at %s is unusable: %v", cfg.SecretPath, err)
			return nil, err
		}
	}

	l := &Loader{
		cfg:          cfg,
		dialect:      dialect,
		target:       db.Target{Dialect: dialect, Credentials: creds, Database: cfg.Database},
		logger:       logger,
		newConnector: db.NewConnector,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func readCredentials(ctx context.Context, secrets etl.SecretReader, path string) (etl.Credentials, error) {
	var creds etl.Credentials

	data, ok, err := secrets.GetSecret(ctx, path)
	if err != nil {
		return creds, fmt.Errorf("%w: %s: %w", etl.ErrSecretRetrieval, path, err)
	}
	if !ok {
		return creds, fmt.Errorf("%w: no data at %s", etl.ErrInvalidSecret, path)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &creds,
	})
	if err != nil {
		return creds, err
	}
	if err := decoder.Decode(data); err != nil {
		return creds, fmt.Errorf("%w: %s: %w", etl.ErrInvalidSecret, path, err)
	}
	return creds, nil
}

func checkCredentials(creds etl.Credentials, method etl.AuthMethod) error {
	var missing []string
	if strings.TrimSpace(creds.Server) == "" {
		missing = append(missing, "server")
	}
	if creds.Username == "" && method != etl.AuthMethodAzure {
		missing = append(missing, "username")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", etl.ErrInvalidSecret, strings.Join(missing, ", "))
	}
	return nil
}

// Target describes where the loader connects. Credentials.Password is
// never included in its String form.
func (l *Loader) Target() db.Target {
	return l.target
}

// Connect opens the single connection. A second call on a connected
// Loader is a no-op. After a failed Connect the Loader should be
// discarded.
func (l *Loader) Connect(ctx context.Context) error {
	if l.db != nil {
		l.logger.Verbose("Already connected to %s", l.target)
		return nil
	}

	connector, err := l.newConnector(l.target, l.cfg)
	if err != nil {
		l.logger.Error("Cannot connect to %s: %v", l.target, err)
		return err
	}

	handle, err := connector.Connect(ctx)
	if err != nil {
		connector.Close() //nolint:errcheck
		l.logger.Error("Connection to %s failed: %v", l.target, err)
		return err
	}

	l.connector = connector
	l.db = handle
	l.logger.Info("Connected to %s using %s auth", l.target, l.cfg.AuthMethod)
	return nil
}

// Close releases the connection and any connector resources.
func (l *Loader) Close() error {
	var firstErr error
	if l.db != nil {
		if err := l.db.Close(); err != nil {
			firstErr = err
		}
		l.db = nil
	}
	if l.connector != nil {
		if err := l.connector.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		l.connector = nil
	}
	return firstErr
}

// withConn runs fn on the pinned connection and releases it on every path.
func (l *Loader) withConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	if l.db == nil {
		return etl.ErrNotConnected
	}
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("%w: acquire connection: %w", etl.ErrConnection, err)
	}
	defer conn.Close()
	return fn(conn)
}

// TableExists reports whether name exists. Any failure, including an
// invalid name or a missing connection, is logged and reported as false.
func (l *Loader) TableExists(ctx context.Context, name string) bool {
	if err := db.ValidateIdentifier(name); err != nil {
		l.logger.Error("Table existence check failed: %v", err)
		return false
	}

	arg := name
	if l.dialect.Name() == etl.DialectSQLite {
		arg = name[strings.LastIndex(name, ".")+1:]
	}

	var found int64
	err := l.withConn(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, l.dialect.ExistsQuery(), arg).Scan(&found)
	})
	if err != nil {
		l.logger.Error("Table existence check for %s failed: %v", name, err)
		return false
	}

	l.logger.Verbose("Table %s exists: %t", name, found == 1)
	return found == 1
}

// TruncateTable deletes every row of name.
func (l *Loader) TruncateTable(ctx context.Context, name string) error {
	return l.execDDL(ctx, name, "truncate", "DELETE FROM "+name+";")
}

// DropTable drops name if it exists.
func (l *Loader) DropTable(ctx context.Context, name string) error {
	return l.execDDL(ctx, name, "drop", "DROP TABLE IF EXISTS "+name+";")
}

func (l *Loader) execDDL(ctx context.Context, name, action, stmt string) error {
	if err := db.ValidateIdentifier(name); err != nil {
		l.logger.Error("Failed to %s table: %v", action, err)
		return err
	}

	err := l.withConn(ctx, func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: %s table %s: %w", etl.ErrQuery, action, name, err)
		}
		return nil
	})
	if err != nil {
		l.logger.Error("Failed to %s table %s: %v", action, name, err)
		return err
	}

	l.logger.Info("Table %s: %s done", name, action)
	return nil
}
