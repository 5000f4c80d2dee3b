package commands

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"navcheck/internal/storage"
	"navcheck/internal/ui"
)

// FailuresCommand handles the failures command
type FailuresCommand struct {
	env *Env
}

// NewFailuresCommand creates a new FailuresCommand
func NewFailuresCommand(env *Env) *FailuresCommand {
	return &FailuresCommand{env: env}
}

// Execute runs the command
func (fc *FailuresCommand) Execute(cmd *cobra.Command, args []string) error {
	st, closeStorage := openStorage(fc.env)
	defer closeStorage()

	results, err := st.Load()
	if errors.Is(err, storage.ErrNoResults) {
		fmt.Fprintln(fc.env.Out, color.YellowString("No run results found; run `navcheck run` first"))
		return nil
	}
	if err != nil {
		return err
	}

	var viewer ui.Viewer = ui.NewFailureViewer(st, fc.env.logger())
	return viewer.View(results)
}
