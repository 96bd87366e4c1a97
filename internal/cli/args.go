package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/holos-company/etldrivers/pkg/etl"
)

// requireArg validates that exactly one positional argument named name is
// provided. The error maps to the usage exit code.
func requireArg(name, example string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 {
			return fmt.Errorf(`%w: missing required argument: <%s>

Usage: %s

Example:
  %s %s`, etl.ErrInvalidInput, name, cmd.UseLine(), cmd.CommandPath(), example)
		}
		if len(args) > 1 {
			return fmt.Errorf("%w: accepts 1 arg(s), received %d", etl.ErrInvalidInput, len(args))
		}
		return nil
	}
}
