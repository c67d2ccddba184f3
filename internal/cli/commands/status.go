package commands

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/shopdesk-dev/shopdesk/internal/cli/output"
)

// NewStatusCmd creates the status command
func NewStatusCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "status",
		Aliases: []string{"whoami"},
		Short:   "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(app)
		},
	}

	return withAuth(cmd, AuthAny)
}

func runStatus(app *App) error {
	format, err := app.OutputFormat()
	if err != nil {
		return err
	}

	state := app.Session.Snapshot()

	status := map[string]any{
		"server":        app.Server.URL,
		"authenticated": state.Authenticated,
		"refreshable":   state.RefreshToken != "",
	}

	if state.User != nil {
		status["user"] = state.User.DisplayName()
		status["email"] = state.User.Email
		status["defaultStore"] = state.User.DefaultStoreID()
	}

	if state.AccessToken != "" {
		for k, v := range describeToken(state.AccessToken, time.Now()) {
			status[k] = v
		}
	}

	return output.PrintOne(app.Out, format, status)
}

// describeToken reads display claims from an access token without verifying
// it. The CLI never holds the signing key.
func describeToken(token string, now time.Time) map[string]any {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return map[string]any{"token": "unreadable"}
	}

	info := map[string]any{}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info["tokenExpires"] = exp.Time.UTC().Format(time.RFC3339)
		if now.After(exp.Time) {
			info["token"] = "expired"
		} else {
			info["token"] = "valid for " + exp.Time.Sub(now).Round(time.Second).String()
		}
	}

	if storeID, ok := claims["store_id"].(string); ok && storeID != "" {
		info["tokenStore"] = storeID
	}

	return info
}
