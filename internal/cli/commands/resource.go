package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shopdesk-dev/shopdesk/internal/cli/client"
	"github.com/shopdesk-dev/shopdesk/internal/cli/output"
	"github.com/shopdesk-dev/shopdesk/internal/cli/prompt"
	"github.com/shopdesk-dev/shopdesk/internal/resources"
)

// NewResourceCmds creates one command group per registered resource
func NewResourceCmds(app *App) []*cobra.Command {
	var cmds []*cobra.Command
	for _, r := range resources.All() {
		cmds = append(cmds, newResourceCmd(app, r))
	}
	return cmds
}

func newResourceCmd(app *App, r resources.Resource) *cobra.Command {
	cmd := &cobra.Command{
		Use:   r.Name,
		Short: fmt.Sprintf("Manage %s", r.Name),
		RunE:  runGroup,
	}

	if r.Supports(resources.OpList) {
		cmd.AddCommand(newResourceListCmd(app, r))
	}
	if r.Supports(resources.OpGet) {
		cmd.AddCommand(newResourceGetCmd(app, r))
	}
	if r.Supports(resources.OpCreate) {
		cmd.AddCommand(newResourceCreateCmd(app, r))
	}
	if r.Supports(resources.OpUpdate) {
		cmd.AddCommand(newResourceUpdateCmd(app, r))
	}
	if r.Supports(resources.OpDelete) {
		cmd.AddCommand(newResourceDeleteCmd(app, r))
	}

	return withAuth(cmd, AuthRequired)
}

func newResourceListCmd(app *App, r resources.Resource) *cobra.Command {
	var storeID, status string
	var mine bool

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   fmt.Sprintf("List %s", r.Name),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResourceList(cmd.Context(), app, r, storeID, mine, status)
		},
	}

	if r.StoreScoped() {
		cmd.Flags().StringVar(&storeID, "store", "", "Only list "+r.Name+" of this store")
		cmd.Flags().BoolVar(&mine, "mine", false, "Only list "+r.Name+" of your default store")
		cmd.MarkFlagsMutuallyExclusive("store", "mine")
	}
	if len(r.Statuses) > 0 {
		cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	}

	return cmd
}

func runResourceList(ctx context.Context, app *App, r resources.Resource, storeID string, mine bool, status string) error {
	format, err := app.OutputFormat()
	if err != nil {
		return err
	}

	if mine || (status != "" && storeID == "") {
		storeID, err = app.DefaultStoreID()
		if err != nil {
			return err
		}
	}

	records, err := app.Client.ListByStore(ctx, r, storeID, status)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", r.Name, err)
	}

	if len(records) == 0 && format == output.FormatTable {
		fmt.Fprintf(app.Out, "No %s found.\n", r.Name)
		return nil
	}

	rows := make([]map[string]any, len(records))
	for i, rec := range records {
		rows[i] = rec
	}

	return output.PrintList(app.Out, format, r.Columns, rows)
}

func newResourceGetCmd(app *App, r resources.Resource) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: fmt.Sprintf("Show a %s", r.Singular),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := app.OutputFormat()
			if err != nil {
				return err
			}

			record, err := app.Client.Get(cmd.Context(), r.ItemPath(args[0]))
			if err != nil {
				return fmt.Errorf("failed to get %s: %w", r.Singular, err)
			}

			return output.PrintOne(app.Out, format, record)
		},
	}
}

func newResourceCreateCmd(app *App, r resources.Resource) *cobra.Command {
	var data, file, storeID string

	cmd := &cobra.Command{
		Use:   "create",
		Short: fmt.Sprintf("Create a %s", r.Singular),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResourceCreate(cmd.Context(), app, r, data, file, storeID)
		},
	}

	addPayloadFlags(cmd, &data, &file)
	if r.StoreCreatePath != "" {
		cmd.Flags().StringVar(&storeID, "store", "", "Create the "+r.Singular+" inside this store")
	}

	return cmd
}

func runResourceCreate(ctx context.Context, app *App, r resources.Resource, data, file, storeID string) error {
	payload, err := readPayload(data, file)
	if err != nil {
		return err
	}

	if err := r.ValidateCreate(payload); err != nil {
		return err
	}

	created, err := app.Client.CreateForStore(ctx, r, storeID, payload)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", r.Singular, err)
	}

	app.Notifier().Success("Created %s %s", r.Singular, created.ID())
	return nil
}

func newResourceUpdateCmd(app *App, r resources.Resource) *cobra.Command {
	var data, file string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: fmt.Sprintf("Update a %s", r.Singular),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(data, file)
			if err != nil {
				return err
			}

			if _, err := app.Client.Update(cmd.Context(), r.ItemPath(args[0]), payload); err != nil {
				return fmt.Errorf("failed to update %s: %w", r.Singular, err)
			}

			app.Notifier().Success("Updated %s %s", r.Singular, args[0])
			return nil
		},
	}

	addPayloadFlags(cmd, &data, &file)

	return cmd
}

func newResourceDeleteCmd(app *App, r resources.Resource) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: fmt.Sprintf("Delete a %s", r.Singular),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			confirmer := app.Confirmer
			if yes {
				confirmer = prompt.AlwaysYes{}
			}
			return runResourceDelete(cmd.Context(), app, r, args[0], confirmer)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

func runResourceDelete(ctx context.Context, app *App, r resources.Resource, id string, confirmer prompt.Confirmer) error {
	ok, err := confirmer.Confirm(fmt.Sprintf("Delete %s %s", r.Singular, id))
	if err != nil {
		return fmt.Errorf("%w (use --yes to skip confirmation)", err)
	}
	if !ok {
		fmt.Fprintln(app.Out, "Cancelled.")
		return nil
	}

	if err := app.Client.Delete(ctx, r.ItemPath(id)); err != nil {
		return fmt.Errorf("failed to delete %s: %w", r.Singular, err)
	}

	app.Notifier().Success("Deleted %s %s", r.Singular, id)
	return nil
}

func addPayloadFlags(cmd *cobra.Command, data, file *string) {
	cmd.Flags().StringVar(data, "data", "", "JSON object with the fields to send")
	cmd.Flags().StringVar(file, "file", "", "Path to a JSON file with the fields to send")
	cmd.MarkFlagsMutuallyExclusive("data", "file")
	cmd.MarkFlagsOneRequired("data", "file")
}

// readPayload parses the --data or --file JSON object
func readPayload(data, file string) (client.Record, error) {
	raw := []byte(data)
	if file != "" {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		raw = content
	}

	var payload client.Record
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("payload must be a JSON object: %w", err)
	}
	if payload == nil {
		return nil, fmt.Errorf("payload must be a JSON object")
	}
	return payload, nil
}
