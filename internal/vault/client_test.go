package vault

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holos-company/etldrivers/internal/logging"
	"github.com/holos-company/etldrivers/pkg/etl"
)

const testToken = "s.valid-token"

// fakeVault serves token lookups and reads under /v1/<mount>/.
func fakeVault(t *testing.T, secrets map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("X-Vault-Token") != testToken {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"errors":["permission denied"]}`))
			return
		}
		switch r.URL.Path {
		case "/v1/auth/token/lookup-self":
			_, _ = w.Write([]byte(`{"data":{"id":"s.valid-token","policies":["default"]}}`))
			return
		case "/v1/holos-company/data/broken":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"errors":["internal error"]}`))
			return
		}
		body, ok := secrets[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}
		assert.NoError(t, json.NewEncoder(w).Encode(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(addr string) etl.VaultConfig {
	return etl.VaultConfig{
		Address:    addr,
		MountPoint: etl.DefaultVaultMount,
		TokenEnv:   "ETL_TEST_VAULT_TOKEN",
	}
}

func TestNew_TokenFromEnvironment(t *testing.T) {
	srv := fakeVault(t, nil)
	t.Setenv("ETL_TEST_VAULT_TOKEN", testToken)

	client, err := New(context.Background(), testConfig(srv.URL), logging.NewNullLogger())
	require.NoError(t, err)
	assert.Equal(t, "holos-company/data", client.mountPoint)
}

func TestNew_InvalidTokenIsAuthenticationError(t *testing.T) {
	srv := fakeVault(t, nil)
	cfg := testConfig(srv.URL)
	cfg.Token = "s.wrong"

	client, err := New(context.Background(), cfg, logging.NewNullLogger())
	assert.ErrorIs(t, err, etl.ErrAuthentication)
	assert.Nil(t, client)
}

func TestNew_MissingTokenIsAuthenticationError(t *testing.T) {
	t.Setenv("ETL_TEST_VAULT_TOKEN", "")

	_, err := New(context.Background(), testConfig("http://127.0.0.1:1"), logging.NewNullLogger())
	assert.ErrorIs(t, err, etl.ErrAuthentication)
}

func TestGetSecret_Success(t *testing.T) {
	srv := fakeVault(t, map[string]any{
		"/v1/holos-company/data/segredo-teste": map[string]any{
			"data": map[string]any{
				"data": map[string]any{
					"server":   "tcp:mistral.database.windows.net",
					"port":     "1433",
					"username": "holos_adm",
					"password": "pw",
				},
				"metadata": map[string]any{"version": 3},
			},
		},
	})
	cfg := testConfig(srv.URL)
	cfg.Token = testToken
	logger := logging.NewRecordingLogger()

	client, err := New(context.Background(), cfg, logger)
	require.NoError(t, err)

	data, ok, err := client.GetSecret(context.Background(), "segredo-teste")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "holos_adm", data["username"])
	assert.Equal(t, "1433", data["port"])
	assert.NotContains(t, data, "metadata")
	assert.Equal(t, 1, logger.Count("info"))
}

func TestGetSecret_ErrorPayloadIsNotReturned(t *testing.T) {
	srv := fakeVault(t, map[string]any{
		"/v1/holos-company/data/half-broken": map[string]any{
			"data": map[string]any{
				"data": map[string]any{"errors": []string{"backend sealed"}},
			},
		},
	})
	cfg := testConfig(srv.URL)
	cfg.Token = testToken
	logger := logging.NewRecordingLogger()

	client, err := New(context.Background(), cfg, logger)
	require.NoError(t, err)

	data, ok, err := client.GetSecret(context.Background(), "half-broken")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, data)
	assert.Equal(t, 1, logger.Count("error"))
}

func TestGetSecret_MissingSecret(t *testing.T) {
	srv := fakeVault(t, nil)
	cfg := testConfig(srv.URL)
	cfg.Token = testToken

	client, err := New(context.Background(), cfg, logging.NewNullLogger())
	require.NoError(t, err)

	data, ok, err := client.GetSecret(context.Background(), "does-not-exist")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, data)
}

func TestGetSecret_ServerErrorIsRetrievalError(t *testing.T) {
	srv := fakeVault(t, nil)
	cfg := testConfig(srv.URL)
	cfg.Token = testToken

	client, err := New(context.Background(), cfg, logging.NewNullLogger())
	require.NoError(t, err)

	_, ok, err := client.GetSecret(context.Background(), "broken")
	assert.ErrorIs(t, err, etl.ErrSecretRetrieval)
	assert.False(t, ok)
}

func TestGetSecret_EmptyPath(t *testing.T) {
	srv := fakeVault(t, nil)
	cfg := testConfig(srv.URL)
	cfg.Token = testToken

	client, err := New(context.Background(), cfg, logging.NewNullLogger())
	require.NoError(t, err)

	_, _, err = client.GetSecret(context.Background(), "  ")
	assert.ErrorIs(t, err, etl.ErrInvalidInput)
}
