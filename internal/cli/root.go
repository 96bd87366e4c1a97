package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/holos-company/etldrivers/internal/config"
	"github.com/holos-company/etldrivers/internal/logging"
	"github.com/holos-company/etldrivers/pkg/etl"
)

// EnvConfigPath names the config file when --config is not given.
const EnvConfigPath = "ETL_CONFIG"

const rootLong = `etl drives the three ends of a data pipeline: it reads credentials from
HashiCorp Vault, bulk loads CSV data into SQL Server, PostgreSQL or SQLite
in independently committed batches, and fetches web pages through rotating
proxies.

Configuration is read from etl.yaml (or $ETL_CONFIG), then environment
variables. A .env file in the working directory is loaded first.

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments, flags or input data)
  3  - Panic or unexpected system error
  10 - Invalid configuration
  11 - Database connection failed
  12 - Vault token rejected
  13 - Secret missing or malformed
  14 - SQL execution failed
  15 - Page could not be fetched`

type rootOptions struct {
	configPath string
	verbose    bool
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "etl",
		Short:        "Vault secrets, bulk SQL loads and proxied web fetches",
		Long:         rootLong,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to etl.yaml (default $ETL_CONFIG or ./etl.yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output for all commands")

	cmd.AddCommand(
		newVersionCommand(),
		newConfigCommand(opts),
		newSecretCommand(opts),
		newTableCommand(opts),
		newFetchCommand(opts),
	)
	return cmd
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo(os.Stdout)
		return nil
	}
	return NewRootCommand().Execute()
}

func (o *rootOptions) logger() etl.Logger {
	return logging.NewConsoleLogger(o.verbose)
}

// settings loads .env, then etl.yaml, then the environment. A missing
// default config file is not an error; a missing explicit one is.
func (o *rootOptions) settings() (*config.Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: .env: %w", etl.ErrInvalidConfig, err)
	}

	path := o.configPath
	explicit := path != ""
	if !explicit {
		if path = os.Getenv(EnvConfigPath); path != "" {
			explicit = true
		} else {
			path = etl.ConfigFileName
		}
	}

	file, err := config.Load(path)
	switch {
	case errors.Is(err, config.ErrConfigNotFound) && !explicit:
		file = nil
	case errors.Is(err, config.ErrConfigNotFound):
		return nil, fmt.Errorf("%w: %s does not exist", etl.ErrInvalidConfig, path)
	case err != nil:
		return nil, err
	}

	return config.Resolve(file, os.Getenv)
}
