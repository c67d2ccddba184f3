// Package prompt is the CLI's interaction capability: confirmations,
// selections, secret entry and user-facing notifications. Commands depend on
// the interfaces so tests can answer prompts without a terminal.
package prompt

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

// ErrNonInteractive is returned when input is required but stdin is not a terminal
var ErrNonInteractive = errors.New("input required but stdin is not a terminal")

// Confirmer asks the user to approve an action
type Confirmer interface {
	Confirm(label string) (bool, error)
}

// Option is one entry of a selection list
type Option struct {
	Label string
	Value string
}

// Selector asks the user to pick one of several options
type Selector interface {
	Select(label string, options []Option) (Option, error)
}

// IsInteractive reports whether stdin is a terminal
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Interactive implements Confirmer and Selector with promptui
type Interactive struct{}

// Confirm shows a y/N prompt. Answering no is not an error.
func (Interactive) Confirm(label string) (bool, error) {
	if !IsInteractive() {
		return false, ErrNonInteractive
	}

	p := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	if _, err := p.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, fmt.Errorf("confirmation cancelled: %w", err)
	}
	return true, nil
}

// Select shows an arrow-key selection list
func (Interactive) Select(label string, options []Option) (Option, error) {
	if len(options) == 0 {
		return Option{}, fmt.Errorf("nothing to select")
	}
	if !IsInteractive() {
		return Option{}, ErrNonInteractive
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label }}",
		Selected: "{{ .Label | green }}",
	}

	p := promptui.Select{
		Label:     label,
		Items:     options,
		Templates: templates,
		Size:      10,
	}

	index, _, err := p.Run()
	if err != nil {
		return Option{}, fmt.Errorf("selection cancelled: %w", err)
	}
	return options[index], nil
}

// AlwaysYes approves every confirmation (--yes)
type AlwaysYes struct{}

func (AlwaysYes) Confirm(string) (bool, error) { return true, nil }

// ReadSecret reads a line from the terminal without echo
func ReadSecret(label string) (string, error) {
	if !IsInteractive() {
		return "", ErrNonInteractive
	}

	fmt.Fprintf(os.Stderr, "%s: ", label)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return string(secret), nil
}

// Notifier reports outcomes to the user
type Notifier interface {
	Info(format string, args ...any)
	Success(format string, args ...any)
	Warn(format string, args ...any)
}

// WriterNotifier prints notifications to an io.Writer
type WriterNotifier struct {
	Out io.Writer
}

// NewNotifier creates a notifier writing to out
func NewNotifier(out io.Writer) *WriterNotifier {
	return &WriterNotifier{Out: out}
}

func (n *WriterNotifier) Info(format string, args ...any) {
	fmt.Fprintf(n.Out, format+"\n", args...)
}

func (n *WriterNotifier) Success(format string, args ...any) {
	fmt.Fprintf(n.Out, "✓ "+format+"\n", args...)
}

func (n *WriterNotifier) Warn(format string, args ...any) {
	fmt.Fprintf(n.Out, "Warning: "+format+"\n", args...)
}
