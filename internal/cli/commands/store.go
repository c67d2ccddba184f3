package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shopdesk-dev/shopdesk/internal/cli/prompt"
)

// NewStoreCmd creates the store command group
func NewStoreCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage the default store",
		RunE:  runGroup,
	}

	cmd.AddCommand(newStoreUseCmd(app))

	return withAuth(cmd, AuthRequired)
}

func newStoreUseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "use [store-id]",
		Short: "Set the default store for your account",
		Long: `Set the default store for your account.

If no store ID is provided, an interactive prompt lists your stores.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var storeID string
			if len(args) > 0 {
				storeID = args[0]
			}
			return runStoreUse(cmd.Context(), app, storeID)
		},
	}
}

func runStoreUse(ctx context.Context, app *App, storeID string) error {
	if storeID == "" {
		var err error
		storeID, err = selectStore(ctx, app)
		if err != nil {
			return err
		}
	}

	user := app.Session.User()
	if user == nil || user.ID == "" {
		return ErrNotLoggedIn
	}

	if err := app.Session.SetDefaultStore(ctx, user.ID, storeID); err != nil {
		return fmt.Errorf("failed to set default store: %w", err)
	}

	app.Notifier().Success("Default store set to %s", storeID)
	return nil
}

func selectStore(ctx context.Context, app *App) (string, error) {
	stores, err := app.Client.List(ctx, "/stores", nil)
	if err != nil {
		return "", fmt.Errorf("failed to list stores: %w", err)
	}

	if len(stores) == 0 {
		return "", fmt.Errorf("no stores found. Create one with: shopdesk stores create --data '{\"name\":\"Main\"}'")
	}

	options := make([]prompt.Option, 0, len(stores))
	for _, store := range stores {
		label := store.ID()
		if name, ok := store["name"].(string); ok && name != "" {
			label = fmt.Sprintf("%s (%s)", name, store.ID())
		}
		options = append(options, prompt.Option{Label: label, Value: store.ID()})
	}

	choice, err := app.Selector.Select("Select a store", options)
	if err != nil {
		return "", err
	}
	return choice.Value, nil
}
