package loader

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holos-company/etldrivers/internal/db"
	"github.com/holos-company/etldrivers/internal/logging"
	"github.com/holos-company/etldrivers/pkg/etl"
)

// fakeSecrets is an in-memory etl.SecretReader.
type fakeSecrets struct {
	data  map[string]map[string]any
	err   error
	calls int
}

func (f *fakeSecrets) GetSecret(ctx context.Context, path string) (map[string]any, bool, error) {
	f.calls++
	if f.err != nil {
		return nil, false, f.err
	}
	d, ok := f.data[path]
	return d, ok, nil
}

func mssqlConfig() etl.LoaderConfig {
	return etl.LoaderConfig{Dialect: etl.DialectMSSQL, SecretPath: "adm@srv"}
}

func TestNew_DecodesWeaklyTypedSecret(t *testing.T) {
	secrets := &fakeSecrets{data: map[string]map[string]any{
		"adm@srv": {"server": "tcp:srv.database.windows.net", "port": "1433", "username": "adm", "password": "pw", "extra": true},
	}}

	l, err := New(context.Background(), secrets, mssqlConfig(), logging.NewNullLogger())
	require.NoError(t, err)

	creds := l.Target().Credentials
	assert.Equal(t, "tcp:srv.database.windows.net", creds.Server)
	assert.Equal(t, 1433, creds.Port)
	assert.Equal(t, "adm", creds.Username)
	assert.Equal(t, "pw", creds.Password)
	assert.Equal(t, etl.DefaultDatabase, l.Target().Database)
	assert.Equal(t, etl.DefaultBatchSize, l.cfg.BatchSize)
	assert.Equal(t, 1, secrets.calls)
}

func TestNew_DefaultSecretPath(t *testing.T) {
	secrets := &fakeSecrets{data: map[string]map[string]any{
		etl.DefaultSecretPath: {"server": "srv", "username": "adm", "password": "pw"},
	}}

	_, err := New(context.Background(), secrets, etl.LoaderConfig{}, logging.NewNullLogger())
	require.NoError(t, err)
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name    string
		secrets etl.SecretReader
		cfg     etl.LoaderConfig
		wantErr error
	}{
		{
			name:    "reader failure",
			secrets: &fakeSecrets{err: errors.New("vault down")},
			cfg:     mssqlConfig(),
			wantErr: etl.ErrSecretRetrieval,
		},
		{
			name:    "secret absent",
			secrets: &fakeSecrets{},
			cfg:     mssqlConfig(),
			wantErr: etl.ErrInvalidSecret,
		},
		{
			name:    "missing server",
			secrets: &fakeSecrets{data: map[string]map[string]any{"adm@srv": {"username": "adm"}}},
			cfg:     mssqlConfig(),
			wantErr: etl.ErrInvalidSecret,
		},
		{
			name:    "undecodable port",
			secrets: &fakeSecrets{data: map[string]map[string]any{"adm@srv": {"server": "s", "username": "u", "port": "high"}}},
			cfg:     mssqlConfig(),
			wantErr: etl.ErrInvalidSecret,
		},
		{
			name:    "no reader for server dialect",
			secrets: nil,
			cfg:     mssqlConfig(),
			wantErr: etl.ErrInvalidConfig,
		},
		{
			name:    "unknown dialect",
			secrets: &fakeSecrets{},
			cfg:     etl.LoaderConfig{Dialect: "oracle"},
			wantErr: etl.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), tt.secrets, tt.cfg, logging.NewNullLogger())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNew_AzureAllowsMissingUsername(t *testing.T) {
	secrets := &fakeSecrets{data: map[string]map[string]any{"adm@srv": {"server": "srv"}}}
	cfg := mssqlConfig()
	cfg.AuthMethod = etl.AuthMethodAzure

	_, err := New(context.Background(), secrets, cfg, logging.NewNullLogger())
	assert.NoError(t, err)
}

func TestLoader_OperationsBeforeConnect(t *testing.T) {
	l := newSQLiteLoader(t, logging.NewNullLogger())
	ctx := context.Background()
	frame := &etl.Frame{Columns: []string{"a"}, Rows: [][]any{{1}}}

	assert.False(t, l.TableExists(ctx, "t"))
	assert.ErrorIs(t, l.CreateTable(ctx, "t", frame), etl.ErrNotConnected)
	_, err := l.AppendBulk(ctx, "t", frame)
	assert.ErrorIs(t, err, etl.ErrNotConnected)
	assert.ErrorIs(t, l.TruncateTable(ctx, "t"), etl.ErrNotConnected)
	assert.ErrorIs(t, l.DropTable(ctx, "t"), etl.ErrNotConnected)
}

func TestLoader_ConnectFailure(t *testing.T) {
	factoryErr := errors.New("no route")
	l, err := New(context.Background(), nil,
		etl.LoaderConfig{Dialect: etl.DialectSQLite, Database: "unused.db"},
		logging.NewNullLogger(),
		WithConnectorFactory(func(db.Target, etl.LoaderConfig) (db.Connector, error) {
			return nil, factoryErr
		}),
	)
	require.NoError(t, err)

	err = l.Connect(context.Background())
	assert.ErrorIs(t, err, factoryErr)
	assert.False(t, l.TableExists(context.Background(), "t"))
}

func TestLoader_ConnectUnreachableServer(t *testing.T) {
	secrets := &fakeSecrets{data: map[string]map[string]any{
		"pg": {"server": "127.0.0.1", "port": 1, "username": "u", "password": "p"},
	}}
	log := logging.NewRecordingLogger()
	l, err := New(context.Background(), secrets,
		etl.LoaderConfig{Dialect: etl.DialectPostgres, SecretPath: "pg", Database: "d"}, log)
	require.NoError(t, err)

	err = l.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, etl.ErrConnection)
	assert.Equal(t, 1, log.Count("error"))
	assert.NoError(t, l.Close())
}

func TestLoader_ConnectIsIdempotent(t *testing.T) {
	l := connectedSQLiteLoader(t)
	first := l.db

	require.NoError(t, l.Connect(context.Background()))
	assert.Same(t, first, l.db)
}

func TestLoader_CloseTwice(t *testing.T) {
	l := connectedSQLiteLoader(t)
	assert.NoError(t, l.Close())
	assert.NoError(t, l.Close())
}

func newSQLiteLoader(t *testing.T, logger etl.Logger) *Loader {
	t.Helper()
	cfg := etl.LoaderConfig{
		Dialect:  etl.DialectSQLite,
		Database: filepath.Join(t.TempDir(), "etl.db"),
	}
	l, err := New(context.Background(), nil, cfg, logger)
	require.NoError(t, err)
	return l
}

func connectedSQLiteLoader(t *testing.T) *Loader {
	t.Helper()
	l := newSQLiteLoader(t, logging.NewNullLogger())
	require.NoError(t, l.Connect(context.Background()))
	t.Cleanup(func() { l.Close() })
	return l
}
