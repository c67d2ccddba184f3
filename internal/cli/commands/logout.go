package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd.Context(), app)
		},
	}

	return withAuth(cmd, AuthAny)
}

func runLogout(ctx context.Context, app *App) error {
	wasAuthenticated := app.Session.IsAuthenticated()

	// Logout clears the local session even when the server is unreachable
	if err := app.Session.Logout(ctx); err != nil {
		return fmt.Errorf("failed to clear stored session: %w", err)
	}

	if wasAuthenticated {
		app.Notifier().Success("Logged out of %s", app.Server.Label())
	} else {
		app.Notifier().Info("Not logged in to %s", app.Server.Label())
	}
	return nil
}
