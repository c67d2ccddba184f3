package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewLoginCmd creates the login command
func NewLoginCmd(app *App) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to a shopdesk server with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), app, email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set SHOPDESK_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set SHOPDESK_PASSWORD, will prompt if not provided)")

	return withAuth(cmd, AuthAnonymous)
}

func runLogin(ctx context.Context, app *App, email, password string) error {
	// Check for environment variables (useful for CI/CD)
	email = flagOrEnv(email, "SHOPDESK_EMAIL")
	password = flagOrEnv(password, "SHOPDESK_PASSWORD")

	if email == "" {
		return fmt.Errorf("email is required (use --email flag or SHOPDESK_EMAIL env var)")
	}

	password, err := readSecretIfEmpty(password, "Password", "use --password flag or SHOPDESK_PASSWORD env var")
	if err != nil {
		return err
	}

	if err := validateInput(credentials{Email: email, Password: password}); err != nil {
		return err
	}

	notify := app.Notifier()
	notify.Info("Logging in to %s...", app.Server.Label())

	if err := app.Session.Login(ctx, email, password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	notify.Success("Login successful!")
	printUser(app)

	return nil
}

// printUser shows the signed-in user after a login
func printUser(app *App) {
	user := app.Session.User()
	if user == nil {
		return
	}

	fmt.Fprintf(app.Out, "  User: %s (%s)\n", user.DisplayName(), user.Email)
	if storeID := user.DefaultStoreID(); storeID != "" {
		fmt.Fprintf(app.Out, "  Default store: %s\n", storeID)
	}
}
