package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"navcheck/internal/discovery"
	"navcheck/internal/domain"
)

// ListCommand handles the list command
type ListCommand struct {
	env     *Env
	scanner *discovery.Scanner
	parser  *discovery.Parser
	filter  *discovery.Filter
}

// NewListCommand creates a new ListCommand
func NewListCommand(
	env *Env,
	scanner *discovery.Scanner,
	parser *discovery.Parser,
	filter *discovery.Filter,
) *ListCommand {
	return &ListCommand{
		env:     env,
		scanner: scanner,
		parser:  parser,
		filter:  filter,
	}
}

// Execute runs the command
func (lc *ListCommand) Execute(cmd *cobra.Command, args []string) error {
	cfg := lc.env.Config
	files, err := lc.scanner.Scan(cfg.GetCasesPath())
	if err != nil {
		return err
	}

	var cases []domain.NavigationCase
	for _, file := range files {
		fileCases, err := lc.parser.ParseFile(file)
		if err != nil {
			fmt.Fprintln(lc.env.Out, color.RedString("Error reading case file %s: %v", file, err))
			continue
		}
		cases = append(cases, fileCases...)
	}

	// Filter cases
	cases = lc.filter.FilterByName(cases, cfg.Flags.NameFilter)

	if len(cases) == 0 {
		fmt.Fprintln(lc.env.Out, color.YellowString("No navigation cases found"))
		return nil
	}

	// Failures from the last run, when there is one, get an [F] marker
	var failures []domain.CaseFailure
	st, closeStorage := openStorage(lc.env)
	defer closeStorage()
	if last, err := st.Load(); err == nil {
		failures = last.Details
	} else {
		lc.env.logger().Debug("no last run to mark failures from", zap.Error(err))
	}

	lc.env.formatter().PrintCaseList(cases, cfg.Flags.ShowCases, failures)
	return nil
}
