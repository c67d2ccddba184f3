package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shopdesk-dev/shopdesk/internal/cli/output"
	"github.com/shopdesk-dev/shopdesk/internal/cli/userconfig"
)

const configKeyOutput = "output"

// NewConfigCmd creates the config command group for user preferences
func NewConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read or change your CLI preferences",
		Long: `Read or change your CLI preferences.

Keys:
  output   default output format (table, json or yaml)

Examples:
  $ shopdesk config set output json
  $ shopdesk config get output`,
		RunE: runGroup,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Save a preference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(app, args[0], args[1])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print a saved preference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(app, args[0])
		},
	})

	return cmd
}

func runConfigSet(app *App, key, value string) error {
	if key != configKeyOutput {
		return fmt.Errorf("unknown config key %q (expected: %s)", key, configKeyOutput)
	}
	if err := output.ValidateFormat(value); err != nil {
		return err
	}

	if err := userconfig.SetOutputFormat(value); err != nil {
		return fmt.Errorf("failed to save user config: %w", err)
	}

	app.Notifier().Success("Output format set to %s", value)
	return nil
}

func runConfigGet(app *App, key string) error {
	if key != configKeyOutput {
		return fmt.Errorf("unknown config key %q (expected: %s)", key, configKeyOutput)
	}

	format, err := userconfig.GetOutputFormat()
	if err != nil {
		return fmt.Errorf("failed to load user config: %w", err)
	}
	if format == "" {
		format = output.FormatTable
	}

	fmt.Fprintln(app.Out, format)
	return nil
}
