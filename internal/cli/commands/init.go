package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shopdesk-dev/shopdesk/internal/cli/client"
	"github.com/shopdesk-dev/shopdesk/internal/cli/config"
)

type initOptions struct {
	alias     string
	insecure  bool
	skipCheck bool
}

// NewInitCmd creates the init command
func NewInitCmd(app *App) *cobra.Command {
	opts := &initOptions{}

	cmd := &cobra.Command{
		Use:   "init <server-url>",
		Short: "Add a shopdesk server to ./shopdesk.json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.Context(), app, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.alias, "alias", "", "Short name for the server (default server-N)")
	cmd.Flags().BoolVar(&opts.insecure, "insecure", false, "Accept self-signed TLS certificates")
	cmd.Flags().BoolVar(&opts.skipCheck, "skip-check", false, "Do not check that the server is reachable")

	return cmd
}

func runInit(ctx context.Context, app *App, serverURL string, opts *initOptions) error {
	server := config.Server{
		URL:      strings.TrimRight(serverURL, "/"),
		Alias:    opts.alias,
		Insecure: opts.insecure,
	}
	if err := server.Validate(); err != nil {
		return err
	}

	currentDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	configPath := filepath.Join(currentDir, config.ConfigFileName)

	var cfg *config.Config
	isNewConfig := false

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load existing config: %w", err)
		}
		fmt.Fprintf(app.Out, "Found existing %s\n", config.ConfigFileName)
	} else {
		cfg = &config.Config{
			Servers: []config.Server{},
		}
		isNewConfig = true
	}

	if _, err := cfg.GetServerByURL(server.URL); err == nil {
		fmt.Fprintf(app.Out, "Server %s already exists in %s\n", server.URL, config.ConfigFileName)
		return nil
	}

	if server.Alias == "" {
		server.Alias = fmt.Sprintf("server-%d", len(cfg.Servers)+1)
	}
	if _, err := cfg.GetServerByAlias(server.Alias); err == nil {
		return fmt.Errorf("alias %q is already used in %s", server.Alias, config.ConfigFileName)
	}

	if !opts.skipCheck {
		checkServer(ctx, app, server)
	}

	cfg.Servers = append(cfg.Servers, server)
	if err := config.Save(configPath, cfg); err != nil {
		return err
	}

	notify := app.Notifier()
	if isNewConfig {
		notify.Success("Created ./%s with server %s (%s)", config.ConfigFileName, server.URL, server.Alias)
	} else {
		notify.Success("Added server %s (%s) to ./%s", server.URL, server.Alias, config.ConfigFileName)
	}

	fmt.Fprintln(app.Out, "\nNext steps:")
	fmt.Fprintln(app.Out, "  1. Run 'shopdesk register' to create an account")
	fmt.Fprintln(app.Out, "  2. Run 'shopdesk login' to authenticate")

	return nil
}

// checkServer warns when the server's health endpoint does not answer
func checkServer(ctx context.Context, app *App, server config.Server) {
	apiClient := client.New(server.URL, nil)
	if server.Insecure {
		apiClient.SetInsecureSkipVerify()
	}

	health, err := apiClient.Health(ctx)
	if err != nil {
		app.Notifier().Warn("could not reach %s: %v", server.URL, err)
		return
	}
	if health.Status != "ok" {
		app.Notifier().Warn("server %s reports status %q", server.URL, health.Status)
	}
}
