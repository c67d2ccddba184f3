package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shopdesk-dev/shopdesk/internal/session"
)

// NewRefreshCmd creates the refresh command
func NewRefreshCmd(app *App) *cobra.Command {
	var refreshToken string

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh(cmd.Context(), app, refreshToken)
		},
	}

	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "Refresh token to use instead of the stored one")

	return withAuth(cmd, AuthAny)
}

func runRefresh(ctx context.Context, app *App, refreshToken string) error {
	if err := app.Session.RefreshAuth(ctx, refreshToken); err != nil {
		if errors.Is(err, session.ErrNoRefreshToken) {
			return fmt.Errorf("%w. Run 'shopdesk login' to sign in again", err)
		}
		return fmt.Errorf("refresh failed: %w", err)
	}

	app.Notifier().Success("Session refreshed")
	printUser(app)
	return nil
}
