// Package vault reads database credentials from a HashiCorp Vault KV mount.
package vault

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/vault/api"

	"github.com/holos-company/etldrivers/pkg/etl"
)

// Client wraps an authenticated Vault API client bound to one mount point.
type Client struct {
	api        *api.Client
	mountPoint string
	logger     etl.Logger
}

var _ etl.SecretReader = (*Client)(nil)

// New creates a Client and verifies the token with a self lookup.
// The token comes from cfg.Token, or the environment variable cfg.TokenEnv.
// An empty or rejected token returns an error wrapping etl.ErrAuthentication.
func New(ctx context.Context, cfg etl.VaultConfig, logger etl.Logger) (*Client, error) {
	token := cfg.Token
	if token == "" && cfg.TokenEnv != "" {
		token = os.Getenv(cfg.TokenEnv)
	}
	if token == "" {
		return nil, fmt.Errorf("%w: no token (set %s)", etl.ErrAuthentication, cfg.TokenEnv)
	}

	apiCfg := api.DefaultConfig()
	if apiCfg.Error != nil {
		return nil, fmt.Errorf("%w: vault environment: %w", etl.ErrInvalidConfig, apiCfg.Error)
	}
	apiCfg.Address = cfg.Address
	apiCfg.MaxRetries = 0

	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: vault client: %w", etl.ErrInvalidConfig, err)
	}
	client.SetToken(token)

	if _, err := client.Auth().Token().LookupSelfWithContext(ctx); err != nil {
		logger.Error("Vault token invalid for %s: %v", cfg.Address, err)
		return nil, fmt.Errorf("%w: vault token rejected by %s: %w", etl.ErrAuthentication, cfg.Address, err)
	}
	logger.Verbose("Authenticated to Vault at %s", cfg.Address)

	return &Client{
		api:        client,
		mountPoint: strings.Trim(cfg.MountPoint, "/"),
		logger:     logger,
	}, nil
}

// GetSecret reads the secret at path under the client's mount point.
//
// It returns (data, true, nil) when the store holds a payload, and
// (nil, false, nil) when it holds nothing or the payload reports errors.
// Transport and protocol failures are returned wrapped in etl.ErrSecretRetrieval.
func (c *Client) GetSecret(ctx context.Context, path string) (map[string]any, bool, error) {
	path = strings.Trim(strings.TrimSpace(path), "/")
	if path == "" {
		return nil, false, fmt.Errorf("%w: empty secret path", etl.ErrInvalidInput)
	}

	secret, err := c.api.Logical().ReadWithContext(ctx, c.mountPoint+"/"+path)
	if err != nil {
		c.logger.Error("Failed reading secret '%s': %v", path, err)
		return nil, false, fmt.Errorf("%w: %s: %w", etl.ErrSecretRetrieval, path, err)
	}

	payload := extractPayload(secret)
	if len(payload) == 0 {
		c.logger.Error("Failed to retrieve secret '%s'", path)
		return nil, false, nil
	}
	if _, hasErrors := payload["errors"]; hasErrors {
		c.logger.Error("Failed to retrieve secret '%s': store reported errors", path)
		return nil, false, nil
	}

	c.logger.Info("Successful secret request for '%s'", path)
	return payload, true, nil
}

// extractPayload returns the inner data map of a KV v2 style response.
func extractPayload(secret *api.Secret) map[string]any {
	if secret == nil || secret.Data == nil {
		return nil
	}
	inner, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil
	}
	return inner
}
