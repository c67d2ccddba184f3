package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// NewUploadCmd creates the upload command
func NewUploadCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a file (product images, receipts)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd.Context(), app, args[0])
		},
	}

	return withAuth(cmd, AuthRequired)
}

func runUpload(ctx context.Context, app *App, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	fmt.Fprintf(app.Out, "Uploading %s (%d bytes)...\n", filepath.Base(path), info.Size())

	resp, err := app.Client.UploadFile(ctx, path, f)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	app.Notifier().Success("Uploaded %s", resp.Filename)
	fmt.Fprintf(app.Out, "  URL: %s\n", resp.URL)
	return nil
}
