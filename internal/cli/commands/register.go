package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewRegisterCmd creates the register command
func NewRegisterCmd(app *App) *cobra.Command {
	var email, username, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account on a shopdesk server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd.Context(), app, email, username, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set SHOPDESK_EMAIL)")
	cmd.Flags().StringVar(&username, "username", "", "Username")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set SHOPDESK_PASSWORD, will prompt if not provided)")

	return withAuth(cmd, AuthAnonymous)
}

func runRegister(ctx context.Context, app *App, email, username, password string) error {
	email = flagOrEnv(email, "SHOPDESK_EMAIL")
	password = flagOrEnv(password, "SHOPDESK_PASSWORD")

	password, err := readSecretIfEmpty(password, "Password", "use --password flag or SHOPDESK_PASSWORD env var")
	if err != nil {
		return err
	}

	if err := validateInput(registration{Email: email, Username: username, Password: password}); err != nil {
		return err
	}

	// Registration does not sign in
	if err := app.Session.Register(ctx, email, username, password); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	app.Notifier().Success("Account created for %s", email)
	fmt.Fprintln(app.Out, "\nNext: shopdesk login --email", email)

	return nil
}
