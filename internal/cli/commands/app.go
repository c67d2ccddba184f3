package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/shopdesk-dev/shopdesk/internal/cli/auth"
	"github.com/shopdesk-dev/shopdesk/internal/cli/client"
	"github.com/shopdesk-dev/shopdesk/internal/cli/config"
	"github.com/shopdesk-dev/shopdesk/internal/cli/output"
	"github.com/shopdesk-dev/shopdesk/internal/cli/prompt"
	"github.com/shopdesk-dev/shopdesk/internal/cli/serverselect"
	"github.com/shopdesk-dev/shopdesk/internal/cli/userconfig"
	"github.com/shopdesk-dev/shopdesk/internal/session"
)

// App carries the dependencies shared by all commands. The root command owns
// one App and passes it to every subcommand.
type App struct {
	Out io.Writer
	Err io.Writer

	StoreFactory auth.StoreFactory
	Confirmer    prompt.Confirmer
	Selector     prompt.Selector
	Log          zerolog.Logger

	// Global flags
	ServerFlag string
	OutputFlag string
	Verbose    bool

	// Set by Connect
	Server  *config.Server
	Client  *client.Client
	Session *session.Manager
}

// NewApp creates an App with the production dependencies
func NewApp() *App {
	return &App{
		Out:          os.Stdout,
		Err:          os.Stderr,
		StoreFactory: auth.DefaultStoreFactory,
		Confirmer:    prompt.Interactive{},
		Selector:     prompt.Interactive{},
		Log:          zerolog.Nop(),
	}
}

// Notifier returns the notifier writing to the command output
func (a *App) Notifier() prompt.Notifier {
	return prompt.NewNotifier(a.Out)
}

// Connect resolves the server, opens its session store and hydrates the
// session. Calling it again is a no-op.
func (a *App) Connect() error {
	if a.Session != nil {
		return nil
	}

	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return fmt.Errorf("failed to load config: %w\nRun 'shopdesk init <server-url>' to create a configuration file", err)
	}

	server, err := serverselect.ResolveServer(cfg, a.ServerFlag, a.Selector)
	if err != nil {
		return err
	}

	if err := server.Validate(); err != nil {
		return err
	}

	store, err := a.StoreFactory(server.URL)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}

	apiClient := client.New(server.URL, client.StoreTokenSource(store))
	if server.Insecure {
		apiClient.SetInsecureSkipVerify()
	}

	a.Server = server
	a.Client = apiClient
	a.Session = session.NewManager(apiClient, store, a.Log)
	a.Session.Initialize()

	a.Log.Debug().
		Str("server", server.URL).
		Bool("authenticated", a.Session.IsAuthenticated()).
		Msg("Session hydrated")

	return nil
}

// OutputFormat returns the --output flag, the saved preference, or table
func (a *App) OutputFormat() (string, error) {
	format := a.OutputFlag
	if format == "" {
		saved, err := userconfig.GetOutputFormat()
		if err != nil {
			return "", fmt.Errorf("failed to load user config: %w", err)
		}
		format = saved
	}
	if format == "" {
		return output.FormatTable, nil
	}
	if err := output.ValidateFormat(format); err != nil {
		return "", err
	}
	return format, nil
}

// DefaultStoreID returns the signed-in user's default store
func (a *App) DefaultStoreID() (string, error) {
	user := a.Session.User()
	if user == nil {
		return "", ErrNotLoggedIn
	}
	storeID := user.DefaultStoreID()
	if storeID == "" {
		return "", fmt.Errorf("no default store set. Run 'shopdesk store use' to pick one")
	}
	return storeID, nil
}
