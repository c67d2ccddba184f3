package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewOTPCmd creates the otp command group for passwordless sign-in
func NewOTPCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "otp",
		Short: "Sign in with a one-time code sent by email",
		Long: `Sign in with a one-time code sent by email.

Examples:
  $ shopdesk otp request --email me@example.com
  $ shopdesk otp login --email me@example.com --code 123456`,
		RunE: runGroup,
	}

	cmd.AddCommand(newOTPRequestCmd(app))
	cmd.AddCommand(newOTPLoginCmd(app))

	return withAuth(cmd, AuthAnonymous)
}

func newOTPRequestCmd(app *App) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "request",
		Short: "Email a one-time code",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOTPRequest(cmd.Context(), app, email)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set SHOPDESK_EMAIL)")

	return cmd
}

func runOTPRequest(ctx context.Context, app *App, email string) error {
	email = flagOrEnv(email, "SHOPDESK_EMAIL")
	if err := validate.Var(email, "required,email"); err != nil {
		return fmt.Errorf("a valid email is required (use --email flag or SHOPDESK_EMAIL env var)")
	}

	if err := app.Session.RequestOTP(ctx, email); err != nil {
		return fmt.Errorf("failed to request code: %w", err)
	}

	app.Notifier().Success("Code sent to %s", email)
	fmt.Fprintf(app.Out, "\nNext: shopdesk otp login --email %s\n", email)
	return nil
}

func newOTPLoginCmd(app *App) *cobra.Command {
	var email, code string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a one-time code",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOTPLogin(cmd.Context(), app, email, code)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set SHOPDESK_EMAIL)")
	cmd.Flags().StringVar(&code, "code", "", "One-time code (will prompt if not provided)")

	return cmd
}

func runOTPLogin(ctx context.Context, app *App, email, code string) error {
	email = flagOrEnv(email, "SHOPDESK_EMAIL")
	if email == "" {
		return fmt.Errorf("email is required (use --email flag or SHOPDESK_EMAIL env var)")
	}

	code, err := readSecretIfEmpty(code, "Code", "use --code flag")
	if err != nil {
		return err
	}

	if err := validateInput(otpCredentials{Email: email, OTP: code}); err != nil {
		return err
	}

	if err := app.Session.LoginWithOTP(ctx, email, code); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	app.Notifier().Success("Login successful!")
	printUser(app)

	return nil
}
