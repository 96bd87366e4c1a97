package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/holos-company/etldrivers/pkg/etl"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

type VaultSection struct {
	Address    string `yaml:"address,omitempty"`
	MountPoint string `yaml:"mount_point,omitempty"`
	TokenEnv   string `yaml:"token_env,omitempty"`
}

type DatabaseSection struct {
	Dialect        string `yaml:"dialect,omitempty"`
	SecretPath     string `yaml:"secret_path,omitempty"`
	Database       string `yaml:"database,omitempty"`
	AuthMethod     string `yaml:"auth_method,omitempty"`
	BatchSize      int    `yaml:"batch_size,omitempty"`
	AzureTenantID  string `yaml:"azure_tenant_id,omitempty"`
	AzureClientID  string `yaml:"azure_client_id,omitempty"`
	AWSRegion      string `yaml:"aws_region,omitempty"`
	GoogleInstance string `yaml:"google_instance,omitempty"`
}

type FetcherSection struct {
	Proxies           []string `yaml:"proxies,omitempty"`
	Browsers          []string `yaml:"browsers,omitempty"`
	FallbackUserAgent string   `yaml:"fallback_user_agent,omitempty"`
	Timeout           string   `yaml:"timeout,omitempty"`
	Retries           int      `yaml:"retries,omitempty"`
	RetryDelay        string   `yaml:"retry_delay,omitempty"`
}

// FileConfig mirrors etl.yaml.
type FileConfig struct {
	Vault    VaultSection    `yaml:"vault"`
	Database DatabaseSection `yaml:"database"`
	Fetcher  FetcherSection  `yaml:"fetcher"`
}

// Settings is the resolved configuration handed to the drivers.
type Settings struct {
	Vault   etl.VaultConfig
	Loader  etl.LoaderConfig
	Fetcher etl.FetcherConfig
}

// Environment variables consulted by Resolve. They override etl.yaml.
const (
	EnvVaultAddress      = "ETL_VAULT_ADDR"
	EnvVaultMount        = "ETL_VAULT_MOUNT"
	EnvDialect           = "ETL_DB_DIALECT"
	EnvDatabase          = "ETL_DB_DATABASE"
	EnvSecretPath        = "ETL_DB_SECRET_PATH"
	EnvAzureClientSecret = "AZURE_CLIENT_SECRET"
	EnvAWSRegion         = "AWS_REGION"
	EnvBatchSize         = "ETL_DB_BATCH_SIZE"
)

// Load reads etl.yaml at path.
func Load(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", etl.ErrInvalidConfig, path, err)
	}
	return &cfg, nil
}

// Save writes cfg to path as YAML, overwriting any existing file.
func Save(path string, cfg *FileConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Defaults returns the settings used when neither etl.yaml nor the
// environment say otherwise.
func Defaults() *Settings {
	return &Settings{
		Vault: etl.VaultConfig{
			Address:    etl.DefaultVaultAddress,
			MountPoint: etl.DefaultVaultMount,
			TokenEnv:   etl.DefaultVaultTokenEnv,
		},
		Loader: etl.LoaderConfig{
			Dialect:    etl.DialectMSSQL,
			SecretPath: etl.DefaultSecretPath,
			Database:   etl.DefaultDatabase,
			AuthMethod: etl.AuthMethodPassword,
			BatchSize:  etl.DefaultBatchSize,
		},
		Fetcher: etl.FetcherConfig{
			Proxies:           append([]string(nil), etl.DefaultProxies...),
			Browsers:          append([]string(nil), etl.DefaultBrowsers...),
			FallbackUserAgent: etl.DefaultFallbackUserAgent,
			Timeout:           etl.DefaultFetchTimeout,
			Retries:           etl.DefaultFetchRetries,
			RetryDelay:        etl.DefaultFetchRetryDelay,
		},
	}
}

// Resolve layers file (may be nil) and then the environment over Defaults.
// getenv is usually os.Getenv.
func Resolve(file *FileConfig, getenv func(string) string) (*Settings, error) {
	s := Defaults()

	if file != nil {
		if err := s.applyFile(file); err != nil {
			return nil, err
		}
	}
	if err := s.applyEnv(getenv); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) applyFile(f *FileConfig) error {
	setString(&s.Vault.Address, f.Vault.Address)
	setString(&s.Vault.MountPoint, f.Vault.MountPoint)
	setString(&s.Vault.TokenEnv, f.Vault.TokenEnv)

	if f.Database.Dialect != "" {
		s.Loader.Dialect = etl.Dialect(f.Database.Dialect)
	}
	setString(&s.Loader.SecretPath, f.Database.SecretPath)
	setString(&s.Loader.Database, f.Database.Database)
	if f.Database.AuthMethod != "" {
		m, err := etl.ParseAuthMethod(f.Database.AuthMethod)
		if err != nil {
			return err
		}
		s.Loader.AuthMethod = m
	}
	if f.Database.BatchSize != 0 {
		s.Loader.BatchSize = f.Database.BatchSize
	}
	setString(&s.Loader.AzureTenantID, f.Database.AzureTenantID)
	setString(&s.Loader.AzureClientID, f.Database.AzureClientID)
	setString(&s.Loader.AWSRegion, f.Database.AWSRegion)
	setString(&s.Loader.GoogleInstance, f.Database.GoogleInstance)

	if len(f.Fetcher.Proxies) > 0 {
		s.Fetcher.Proxies = append([]string(nil), f.Fetcher.Proxies...)
	}
	if len(f.Fetcher.Browsers) > 0 {
		s.Fetcher.Browsers = append([]string(nil), f.Fetcher.Browsers...)
	}
	setString(&s.Fetcher.FallbackUserAgent, f.Fetcher.FallbackUserAgent)
	if f.Fetcher.Retries != 0 {
		s.Fetcher.Retries = f.Fetcher.Retries
	}
	if err := setDuration(&s.Fetcher.Timeout, f.Fetcher.Timeout, "fetcher.timeout"); err != nil {
		return err
	}
	return setDuration(&s.Fetcher.RetryDelay, f.Fetcher.RetryDelay, "fetcher.retry_delay")
}

func (s *Settings) applyEnv(getenv func(string) string) error {
	if getenv == nil {
		return nil
	}
	setString(&s.Vault.Address, getenv(EnvVaultAddress))
	setString(&s.Vault.MountPoint, getenv(EnvVaultMount))
	if d := getenv(EnvDialect); d != "" {
		s.Loader.Dialect = etl.Dialect(d)
	}
	setString(&s.Loader.Database, getenv(EnvDatabase))
	setString(&s.Loader.SecretPath, getenv(EnvSecretPath))
	setString(&s.Loader.AzureClientSecret, getenv(EnvAzureClientSecret))
	setString(&s.Loader.AWSRegion, getenv(EnvAWSRegion))
	if v := getenv(EnvBatchSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", etl.ErrInvalidConfig, EnvBatchSize, v)
		}
		s.Loader.BatchSize = n
	}
	return nil
}

// Validate rejects settings the drivers cannot run with.
func (s *Settings) Validate() error {
	if !s.Loader.Dialect.IsValid() {
		return fmt.Errorf("%w: unknown dialect %q", etl.ErrInvalidConfig, s.Loader.Dialect)
	}
	if s.Loader.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size must be positive, got %d", etl.ErrInvalidConfig, s.Loader.BatchSize)
	}
	if s.Fetcher.Retries <= 0 {
		return fmt.Errorf("%w: fetch retries must be positive, got %d", etl.ErrInvalidConfig, s.Fetcher.Retries)
	}
	if s.Fetcher.Timeout <= 0 {
		return fmt.Errorf("%w: fetch timeout must be positive", etl.ErrInvalidConfig)
	}
	if s.Vault.Address == "" {
		return fmt.Errorf("%w: vault address is empty", etl.ErrInvalidConfig)
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v, field string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%w: invalid %s %q: %w", etl.ErrInvalidConfig, field, v, err)
	}
	*dst = d
	return nil
}

// FromSettings converts resolved settings back to the file layout, for
// writing a starter etl.yaml or showing the effective configuration.
// Client secrets are never included.
func FromSettings(s *Settings) *FileConfig {
	return &FileConfig{
		Vault: VaultSection{
			Address:    s.Vault.Address,
			MountPoint: s.Vault.MountPoint,
			TokenEnv:   s.Vault.TokenEnv,
		},
		Database: DatabaseSection{
			Dialect:        string(s.Loader.Dialect),
			SecretPath:     s.Loader.SecretPath,
			Database:       s.Loader.Database,
			AuthMethod:     s.Loader.AuthMethod.String(),
			BatchSize:      s.Loader.BatchSize,
			AzureTenantID:  s.Loader.AzureTenantID,
			AzureClientID:  s.Loader.AzureClientID,
			AWSRegion:      s.Loader.AWSRegion,
			GoogleInstance: s.Loader.GoogleInstance,
		},
		Fetcher: FetcherSection{
			Proxies:           append([]string(nil), s.Fetcher.Proxies...),
			Browsers:          append([]string(nil), s.Fetcher.Browsers...),
			FallbackUserAgent: s.Fetcher.FallbackUserAgent,
			Timeout:           s.Fetcher.Timeout.String(),
			Retries:           s.Fetcher.Retries,
			RetryDelay:        s.Fetcher.RetryDelay.String(),
		},
	}
}
