package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	masker "github.com/goliatone/go-masker"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/holos-company/etldrivers/internal/config"
	"github.com/holos-company/etldrivers/internal/vault"
	"github.com/holos-company/etldrivers/pkg/etl"
)

// promptToken asks for the Vault token on an interactive terminal.
// Tests replace it.
var promptToken = func(envName string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}
	fmt.Fprintf(os.Stderr, "Vault token ($%s is not set): ", envName)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// openVault connects to the secret store, prompting for a token when the
// configured variable is empty and stdin is a terminal.
func openVault(ctx context.Context, s *config.Settings, logger etl.Logger) (*vault.Client, error) {
	cfg := s.Vault
	if cfg.Token == "" && os.Getenv(cfg.TokenEnv) == "" {
		token, err := promptToken(cfg.TokenEnv)
		if err != nil {
			return nil, err
		}
		cfg.Token = token
	}
	return vault.New(ctx, cfg, logger)
}

type secretOptions struct {
	reveal bool
}

func newSecretCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Read secrets from Vault",
	}

	opts := &secretOptions{}
	get := &cobra.Command{
		Use:   "get <path>",
		Short: "Show the key/value pairs stored at a secret path",
		Long: `Reads <mount>/<path> from Vault and prints its keys and values.
Values are masked unless --reveal is given.`,
		Args: requireArg("path", "holos_adm@mistral-bi-server.database.windows.net"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSecretGet(cmd, root, opts, args[0])
		},
	}
	get.Flags().BoolVar(&opts.reveal, "reveal", false, "Print secret values unmasked")

	cmd.AddCommand(get)
	return cmd
}

func runSecretGet(cmd *cobra.Command, root *rootOptions, opts *secretOptions, path string) error {
	settings, err := root.settings()
	if err != nil {
		return err
	}
	logger := root.logger()

	client, err := openVault(cmd.Context(), settings, logger)
	if err != nil {
		return err
	}

	data, ok, err := client.GetSecret(cmd.Context(), path)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: no data at %s", etl.ErrInvalidSecret, path)
	}

	renderSecret(cmd.OutOrStdout(), data, opts.reveal)
	return nil
}

// renderSecret prints data as a two column table sorted by key.
func renderSecret(w io.Writer, data map[string]any, reveal bool) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		v := fmt.Sprint(data[k])
		if !reveal {
			v = maskValue(v)
		}
		rows = append(rows, []string{k, v})
	}

	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"Key", "Value"})
	table.AppendBulk(rows)
	table.Render()
}

func maskValue(value string) string {
	if value == "" {
		return ""
	}
	runes := []rune(value)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	if masked, err := masker.Default.String("preserveEnds(2,2)", value); err == nil {
		return masked
	}
	return string(runes[:2]) + strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-2:])
}
