package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/holos-company/etldrivers/internal/csvframe"
	"github.com/holos-company/etldrivers/internal/loader"
	"github.com/holos-company/etldrivers/pkg/etl"
)

type tableOptions struct {
	dialect    string
	database   string
	secretPath string
	authMethod string

	csvPath    string
	delimiter  string
	batchSize  int
	stamp      bool
	createMiss bool
}

func newTableCommand(root *rootOptions) *cobra.Command {
	opts := &tableOptions{}

	cmd := &cobra.Command{
		Use:   "table",
		Short: "Create, load and maintain database tables",
		Long: `Table commands connect with credentials read from Vault at the configured
secret path. The sqlite dialect treats --database as a file path and does
not use Vault.`,
	}
	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.dialect, "dialect", "", "Database dialect: mssql, postgres or sqlite")
	pf.StringVarP(&opts.database, "database", "d", "", "Database name (file path for sqlite)")
	pf.StringVar(&opts.secretPath, "secret-path", "", "Vault path of the database credentials")
	pf.StringVar(&opts.authMethod, "auth-method", "", "Authentication: password, azure, aws_iam or google_iam")

	exists := &cobra.Command{
		Use:   "exists <table>",
		Short: "Print whether a table exists",
		Args:  requireArg("table", "dbo.sales"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLoader(cmd, root, opts, func(ctx context.Context, l *loader.Loader) error {
				fmt.Fprintln(cmd.OutOrStdout(), l.TableExists(ctx, args[0]))
				return nil
			})
		},
	}

	create := &cobra.Command{
		Use:   "create <table>",
		Short: "Create a table whose columns are inferred from a CSV file",
		Args:  requireArg("table", "dbo.sales --csv sales.csv"),
		RunE: func(cmd *cobra.Command, args []string) error {
			frame, err := opts.readFrame()
			if err != nil {
				return err
			}
			return withLoader(cmd, root, opts, func(ctx context.Context, l *loader.Loader) error {
				return l.CreateTable(ctx, args[0], frame)
			})
		},
	}
	addCSVFlags(create, opts)

	appendCmd := &cobra.Command{
		Use:   "append <table>",
		Short: "Append a CSV file to a table in committed batches",
		Long: `Appends every row of --csv to <table>. Each batch is committed on its own;
if a batch fails, the batches before it stay committed and the command
reports how many rows were loaded.`,
		Args: requireArg("table", "dbo.sales --csv sales.csv --batch-size 5000"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAppend(cmd, root, opts, args[0])
		},
	}
	addCSVFlags(appendCmd, opts)
	appendCmd.Flags().IntVar(&opts.batchSize, "batch-size", 0, "Rows per committed batch (default from config, 10000)")
	appendCmd.Flags().BoolVar(&opts.stamp, "stamp-insert-time", false, "Fill the insert_time column with the load time")
	appendCmd.Flags().BoolVar(&opts.createMiss, "create", false, "Create the table first if it does not exist")

	truncate := &cobra.Command{
		Use:   "truncate <table>",
		Short: "Delete every row of a table",
		Args:  requireArg("table", "dbo.sales"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLoader(cmd, root, opts, func(ctx context.Context, l *loader.Loader) error {
				return l.TruncateTable(ctx, args[0])
			})
		},
	}

	drop := &cobra.Command{
		Use:   "drop <table>",
		Short: "Drop a table if it exists",
		Args:  requireArg("table", "dbo.sales"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLoader(cmd, root, opts, func(ctx context.Context, l *loader.Loader) error {
				return l.DropTable(ctx, args[0])
			})
		},
	}

	cmd.AddCommand(exists, create, appendCmd, truncate, drop)
	return cmd
}

func addCSVFlags(cmd *cobra.Command, opts *tableOptions) {
	cmd.Flags().StringVar(&opts.csvPath, "csv", "", "CSV file with a header row (required)")
	cmd.Flags().StringVar(&opts.delimiter, "delimiter", ",", "CSV field delimiter")
	_ = cmd.MarkFlagRequired("csv")
}

func (o *tableOptions) readFrame() (*etl.Frame, error) {
	runes := []rune(o.delimiter)
	if len(runes) != 1 {
		return nil, fmt.Errorf("%w: --delimiter must be a single character", etl.ErrInvalidInput)
	}
	return csvframe.ReadFile(o.csvPath, csvframe.WithDelimiter(runes[0]))
}

func runAppend(cmd *cobra.Command, root *rootOptions, opts *tableOptions, table string) error {
	frame, err := opts.readFrame()
	if err != nil {
		return err
	}

	var appendOpts []loader.AppendOption
	if opts.batchSize > 0 {
		appendOpts = append(appendOpts, loader.WithBatchSize(opts.batchSize))
	}
	if opts.stamp {
		appendOpts = append(appendOpts, loader.WithInsertTime(nil))
	}

	return withLoader(cmd, root, opts, func(ctx context.Context, l *loader.Loader) error {
		if opts.createMiss && !l.TableExists(ctx, table) {
			if err := l.CreateTable(ctx, table, frame); err != nil {
				return err
			}
		}

		res, err := l.AppendBulk(ctx, table, frame, appendOpts...)
		fmt.Fprintf(cmd.OutOrStdout(), "load %s: %d/%d rows in %d/%d batches committed to %s\n",
			res.LoadID, res.CommittedRows, res.TotalRows, res.CommittedChunks, res.TotalChunks, table)
		return err
	})
}

// withLoader resolves settings, builds and connects a Loader, runs fn and
// closes the Loader.
func withLoader(cmd *cobra.Command, root *rootOptions, opts *tableOptions, fn func(ctx context.Context, l *loader.Loader) error) error {
	settings, err := root.settings()
	if err != nil {
		return err
	}
	cfg := settings.Loader
	if opts.dialect != "" {
		cfg.Dialect = etl.Dialect(opts.dialect)
		if !cfg.Dialect.IsValid() {
			return fmt.Errorf("%w: unknown dialect %q", etl.ErrInvalidConfig, opts.dialect)
		}
	}
	if opts.database != "" {
		cfg.Database = opts.database
	}
	if opts.secretPath != "" {
		cfg.SecretPath = opts.secretPath
	}
	if opts.authMethod != "" {
		if cfg.AuthMethod, err = etl.ParseAuthMethod(opts.authMethod); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	logger := root.logger()

	var secrets etl.SecretReader
	if cfg.Dialect != etl.DialectSQLite {
		client, err := openVault(ctx, settings, logger)
		if err != nil {
			return err
		}
		secrets = client
	}

	l, err := loader.New(ctx, secrets, cfg, logger)
	if err != nil {
		return err
	}
	defer l.Close()

	if err := l.Connect(ctx); err != nil {
		return err
	}
	return fn(ctx, l)
}
