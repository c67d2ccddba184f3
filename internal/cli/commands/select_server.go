package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shopdesk-dev/shopdesk/internal/cli/config"
	"github.com/shopdesk-dev/shopdesk/internal/cli/serverselect"
	"github.com/shopdesk-dev/shopdesk/internal/cli/userconfig"
)

// NewSelectServerCmd creates the select-server command
func NewSelectServerCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select-server [url-or-alias]",
		Short: "Select the server to use for commands",
		Long: `Select the server to use for commands.

If no param is provided, an interactive prompt will be shown.
Each server keeps its own session.

Examples:
  $ shopdesk select-server                            # Interactive selection
  $ shopdesk select-server https://shop.example.com   # Select by URL
  $ shopdesk select-server production                 # Select by alias`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var urlOrAlias string
			if len(args) > 0 {
				urlOrAlias = args[0]
			}
			return runSelectServer(app, urlOrAlias)
		},
	}

	return cmd
}

func runSelectServer(app *App, urlOrAlias string) error {
	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return fmt.Errorf("failed to load config: %w\nRun 'shopdesk init <server-url>' to create a configuration file", err)
	}

	var server *config.Server

	if urlOrAlias != "" {
		server, err = cfg.GetServerByURLOrAlias(urlOrAlias)
		if err != nil {
			return err
		}
	} else {
		server, err = serverselect.PromptServerSelection(cfg, app.Selector)
		if err != nil {
			return err
		}
	}

	if err := userconfig.SetSelectedServer(server.URL); err != nil {
		return fmt.Errorf("failed to save selected server: %w", err)
	}

	fmt.Fprintf(app.Out, "Selected server: %s\n", server.Label())
	return nil
}
