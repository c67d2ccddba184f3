package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// AuthAnnotation is the cobra annotation key declaring a command's access rule
const AuthAnnotation = "auth"

// Access rules
const (
	// AuthRequired commands need a signed-in session
	AuthRequired = "required"
	// AuthAnonymous commands are meant for signed-out users (login, register)
	AuthAnonymous = "anonymous"
	// AuthAny commands need a hydrated session but no particular state
	AuthAny = "any"
)

var (
	// ErrNotLoggedIn is returned by guarded commands without a session
	ErrNotLoggedIn = errors.New("not logged in, run 'shopdesk login'")
	// ErrSessionLoading is returned if a guard runs before hydration finished
	ErrSessionLoading = errors.New("session is still loading")
)

// authMode returns the access rule of cmd or its nearest annotated parent
func authMode(cmd *cobra.Command) (string, bool) {
	for c := cmd; c != nil; c = c.Parent() {
		if mode, ok := c.Annotations[AuthAnnotation]; ok {
			return mode, true
		}
	}
	return "", false
}

// Guard hydrates the session for annotated commands and enforces their
// access rule. Commands without an annotation never touch the session.
func (a *App) Guard(cmd *cobra.Command) error {
	mode, ok := authMode(cmd)
	if !ok {
		return nil
	}

	if err := a.Connect(); err != nil {
		return err
	}

	if a.Session.IsLoading() {
		return ErrSessionLoading
	}

	switch mode {
	case AuthRequired:
		if !a.Session.IsAuthenticated() {
			return ErrNotLoggedIn
		}
	case AuthAnonymous:
		if a.Session.IsAuthenticated() {
			a.Notifier().Warn("already logged in as %s", a.Session.User().DisplayName())
		}
	}

	return nil
}

func withAuth(cmd *cobra.Command, mode string) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[AuthAnnotation] = mode
	return cmd
}

// runGroup rejects unknown subcommands of a command group
func runGroup(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
}
