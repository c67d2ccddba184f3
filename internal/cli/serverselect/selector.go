package serverselect

import (
	"fmt"
	"os"

	"github.com/shopdesk-dev/shopdesk/internal/cli/config"
	"github.com/shopdesk-dev/shopdesk/internal/cli/prompt"
	"github.com/shopdesk-dev/shopdesk/internal/cli/userconfig"
)

// ResolveServer determines which server to use based on the following priority:
// 1. If serverFlag (URL or alias) is provided, use that server
// 2. If SHOPDESK_SERVER is set, use that server
// 3. If user has a selected server in their local config, use that
// 4. If only one server in project config, or stdin is not a terminal, use the first
// 5. Otherwise, prompt user to select a server interactively
func ResolveServer(projectConfig *config.Config, serverFlag string, selector prompt.Selector) (*config.Server, error) {
	// Priority 1 and 2: explicit choice
	if serverFlag == "" {
		serverFlag = os.Getenv("SHOPDESK_SERVER")
	}
	if serverFlag != "" {
		return projectConfig.GetServerByURLOrAlias(serverFlag)
	}

	// Priority 3: Use selected server from user config
	selectedURL, err := userconfig.GetSelectedServer()
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}

	if selectedURL != "" {
		server, err := projectConfig.GetServerByURL(selectedURL)
		if err != nil {
			// Selected server no longer exists in project config, clear it and continue
			_ = userconfig.SetSelectedServer("")
		} else {
			return server, nil
		}
	}

	// Priority 4: If only one server, use it automatically
	if len(projectConfig.Servers) == 1 || (len(projectConfig.Servers) > 1 && !prompt.IsInteractive()) {
		server := &projectConfig.Servers[0]
		if err := userconfig.SetSelectedServer(server.URL); err != nil {
			// Don't fail if we can't save, just continue
			fmt.Fprintf(os.Stderr, "Warning: failed to save selected server: %v\n", err)
		}
		return server, nil
	}

	// Priority 5: Prompt user to select a server
	server, err := PromptServerSelection(projectConfig, selector)
	if err != nil {
		return nil, err
	}

	if err := userconfig.SetSelectedServer(server.URL); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to save selected server: %v\n", err)
	}

	return server, nil
}

// PromptServerSelection asks the user to pick one of the configured servers
func PromptServerSelection(projectConfig *config.Config, selector prompt.Selector) (*config.Server, error) {
	if len(projectConfig.Servers) == 0 {
		return nil, fmt.Errorf("no servers configured in %s", config.ConfigFileName)
	}

	options := make([]prompt.Option, len(projectConfig.Servers))
	for i := range projectConfig.Servers {
		options[i] = prompt.Option{
			Label: projectConfig.Servers[i].Label(),
			Value: projectConfig.Servers[i].URL,
		}
	}

	choice, err := selector.Select("Select a server", options)
	if err != nil {
		return nil, fmt.Errorf("server selection cancelled: %w", err)
	}

	return projectConfig.GetServerByURL(choice.Value)
}
