package commands

import (
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/x/term"

	"github.com/basecamp/prismctl/internal/output"
)

// Replaced in tests.
var (
	interactive = func() bool {
		return term.IsTerminal(os.Stdin.Fd()) && term.IsTerminal(os.Stdout.Fd())
	}
	confirmDangerous = func(message string) (bool, error) {
		var ok bool
		err := huh.NewConfirm().
			Title(message).
			Description("This action cannot be undone.").
			Affirmative("Yes, I'm sure").
			Negative("Cancel").
			Value(&ok).
			Run()
		return ok, err
	}
)

// confirm asks before a destructive action. Only a terminal is asked;
// scripts and --force go ahead.
func confirm(message string, force bool) error {
	if force || !interactive() {
		return nil
	}
	ok, err := confirmDangerous(message)
	if err != nil {
		return err
	}
	if !ok {
		return output.ErrCanceled("Canceled")
	}
	return nil
}
