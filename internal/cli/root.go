package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shopdesk-dev/shopdesk/internal/cli/commands"
	"github.com/shopdesk-dev/shopdesk/internal/logger"
)

var version = "dev" // Will be set during build

// NewRootCmd builds the command tree around app
func NewRootCmd(app *commands.App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "shopdesk",
		Short: "shopdesk - Retail back-office from the terminal",
		Long: `shopdesk CLI - Manage stores, products, orders and transactions.

Sign in once with 'shopdesk login'; the session is kept in the system keyring
(or a file, with SHOPDESK_SESSION_STORE=file) and refreshed with 'shopdesk refresh'.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := os.Getenv("SHOPDESK_LOG_LEVEL")
			if app.Verbose {
				level = "debug"
			}
			if level == "" {
				level = "warn"
			}
			logger.InitWriter(app.Err, level, "console")
			app.Log = logger.GetLogger()

			return app.Guard(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&app.ServerFlag, "server", "s", "", "Server URL or alias (or set SHOPDESK_SERVER)")
	rootCmd.PersistentFlags().StringVarP(&app.OutputFlag, "output", "o", "", "Output format: table, json or yaml")
	rootCmd.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.SetOut(app.Out)
	rootCmd.SetErr(app.Err)

	// Add version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(app.Out, "shopdesk version %s\n", version)
		},
	})

	// Add all subcommands
	rootCmd.AddCommand(commands.NewInitCmd(app))
	rootCmd.AddCommand(commands.NewSelectServerCmd(app))
	rootCmd.AddCommand(commands.NewRegisterCmd(app))
	rootCmd.AddCommand(commands.NewLoginCmd(app))
	rootCmd.AddCommand(commands.NewOTPCmd(app))
	rootCmd.AddCommand(commands.NewLogoutCmd(app))
	rootCmd.AddCommand(commands.NewRefreshCmd(app))
	rootCmd.AddCommand(commands.NewStatusCmd(app))
	rootCmd.AddCommand(commands.NewStoreCmd(app))
	rootCmd.AddCommand(commands.NewUploadCmd(app))
	rootCmd.AddCommand(commands.NewDashCmd(app))
	rootCmd.AddCommand(commands.NewConfigCmd(app))
	rootCmd.AddCommand(commands.NewResourceCmds(app)...)

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := commands.NewApp()
	if err := NewRootCmd(app).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
