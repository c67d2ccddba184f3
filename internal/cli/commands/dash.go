package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shopdesk-dev/shopdesk/internal/cli/output"
	"github.com/shopdesk-dev/shopdesk/internal/resources"
)

// dashResources are the collections counted on the dashboard
var dashResources = []string{"products", "orders", "brands", "categories", "stores"}

// NewDashCmd creates the dash command
func NewDashCmd(app *App) *cobra.Command {
	var mine bool

	cmd := &cobra.Command{
		Use:   "dash",
		Short: "Show how many records of each kind you have",
		Long: `Show how many products, orders, brands, categories and stores you have.

With --mine, store-scoped counts only cover your default store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDash(cmd.Context(), app, mine)
		},
	}

	cmd.Flags().BoolVar(&mine, "mine", false, "Only count records of your default store")

	return withAuth(cmd, AuthRequired)
}

func runDash(ctx context.Context, app *App, mine bool) error {
	format, err := app.OutputFormat()
	if err != nil {
		return err
	}

	var storeID string
	if mine {
		storeID, err = app.DefaultStoreID()
		if err != nil {
			return err
		}
	}

	counts := make(map[string]any, len(dashResources))
	for _, name := range dashResources {
		r, ok := resources.Lookup(name)
		if !ok {
			return fmt.Errorf("unknown resource %q", name)
		}

		scope := ""
		if r.StoreScoped() {
			scope = storeID
		}

		records, err := app.Client.ListByStore(ctx, r, scope, "")
		if err != nil {
			return fmt.Errorf("failed to count %s: %w", name, err)
		}
		counts[name] = len(records)
	}

	return output.PrintOne(app.Out, format, counts)
}
