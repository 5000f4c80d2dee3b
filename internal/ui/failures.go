package ui

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"navcheck/internal/domain"
	"navcheck/internal/storage"
)

// FailureViewer displays the failures of a run in an interactive TUI
type FailureViewer struct {
	storage storage.Storage
	logger  *zap.Logger
}

// NewFailureViewer creates a new FailureViewer; resolved flags are saved to st
func NewFailureViewer(st storage.Storage, logger *zap.Logger) *FailureViewer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FailureViewer{
		storage: st,
		logger:  logger.With(zap.String("component", "failure_viewer")),
	}
}

// View displays run failures in an interactive TUI
func (fv *FailureViewer) View(results *domain.RunOutput) error {
	if len(results.Details) == 0 {
		fmt.Println(color.GreenString("✓ No navigation failures found!"))
		return nil
	}

	app := tview.NewApplication()

	list := tview.NewList().
		ShowSecondaryText(false).
		SetHighlightFullLine(true)

	for i := range results.Details {
		list.AddItem(listItemText(results.Details[i], i), "", 0, nil)
	}

	list.SetMainTextColor(tview.Styles.PrimaryTextColor).
		SetSelectedTextColor(tcell.ColorWhite).
		SetSelectedBackgroundColor(tcell.ColorDarkCyan).
		SetSecondaryTextColor(tview.Styles.SecondaryTextColor)

	statsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false).
		SetWordWrap(false)

	detailsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true).
		SetWordWrap(true)

	detailsContainer := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(detailsView, 0, 1, false).
		AddItem(tview.NewBox(), 2, 0, false)

	rightSide := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(statsView, 3, 0, false).
		AddItem(detailsContainer, 0, 1, false)

	// list on the left (1/3), details on the right (2/3)
	flex := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(list, 0, 1, true).
		AddItem(rightSide, 0, 2, false)

	headerView := tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetDynamicColors(true)

	updateHeader := func() {
		headerView.SetText(fmt.Sprintf(
			" Navigation Failures (%d total, %d unresolved) | Use ↑↓ to navigate, [yellow]R[white] to mark resolved, → to view details, ← to go back, Ctrl+C to exit ",
			len(results.Details), countUnresolved(results.Details)))
	}
	updateHeader()

	updateDetails := func() {
		index := list.GetCurrentItem()
		if index >= 0 && index < len(results.Details) {
			failure := results.Details[index]
			statsView.SetText(formatFailureStats(failure, index+1))
			detailsView.SetText(formatFailureDetails(failure))
		}
	}

	list.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyUp, tcell.KeyDown:
			return event
		case tcell.KeyEnter, tcell.KeyRight:
			app.SetFocus(detailsView)
			return nil
		case tcell.KeyCtrlC:
			app.Stop()
			return nil
		case tcell.KeyRune:
			if event.Rune() == 'r' || event.Rune() == 'R' {
				index := list.GetCurrentItem()
				if index >= 0 && index < len(results.Details) {
					toggleResolved(results, index)
					list.SetItemText(index, listItemText(results.Details[index], index), "")
					updateHeader()
					updateDetails()
					if err := fv.storage.SaveOutput(results); err != nil {
						fv.logger.Warn("failed to save resolved status", zap.Error(err))
					}
				}
				return nil
			}
		}
		return event
	})

	detailsView.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyLeft, tcell.KeyEsc:
			app.SetFocus(list)
			return nil
		case tcell.KeyCtrlC:
			app.Stop()
			return nil
		}
		return event
	})

	list.SetChangedFunc(func(index int, mainText string, secondaryText string, shortcut rune) {
		updateDetails()
	})
	updateDetails()

	mainLayout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(headerView, 1, 0, false).
		AddItem(tview.NewBox(), 1, 0, false).
		AddItem(flex, 0, 1, true)

	if err := app.SetRoot(mainLayout, true).SetFocus(list).Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func toggleResolved(results *domain.RunOutput, index int) {
	results.Details[index].Resolved = !results.Details[index].Resolved
}

func countUnresolved(failures []domain.CaseFailure) int {
	count := 0
	for _, f := range failures {
		if !f.Resolved {
			count++
		}
	}
	return count
}

func caseLabel(failure domain.CaseFailure, index int) string {
	if failure.CaseName == "" {
		return fmt.Sprintf("Case %d", index+1)
	}
	return failure.CaseName
}

// listItemText formats a list entry using tview color tags
func listItemText(failure domain.CaseFailure, index int) string {
	name := tview.Escape(caseLabel(failure, index))
	if failure.Resolved {
		return fmt.Sprintf("[gray]✓ [yellow]%d.[gray] %s[white]", index+1, name)
	}
	return fmt.Sprintf("[yellow]%d.[white] %s", index+1, name)
}

// formatFailureDetails formats a failure for display using tview color tags
func formatFailureDetails(failure domain.CaseFailure) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[red]✗ Case: %s[white]\n\n", tview.Escape(failure.CaseName))
	fmt.Fprintf(&b, "[cyan]Kind:[white] %s\n", kindLabel(failure.Kind))
	fmt.Fprintf(&b, "[cyan]File:[white] %s\n\n", tview.Escape(failure.FilePath))

	fmt.Fprintf(&b, "[yellow]Target URL:[white]   %s\n", tview.Escape(failure.TargetURL))
	fmt.Fprintf(&b, "[yellow]Expected URL:[white] %s\n", tview.Escape(failure.ExpectedURL))
	if failure.ActualURL != "" {
		fmt.Fprintf(&b, "[yellow]Actual URL:[white]   %s\n", tview.Escape(failure.ActualURL))
	}
	if failure.ExpectedContent != "" {
		fmt.Fprintf(&b, "[yellow]Content:[white]      %s\n", tview.Escape(failure.ExpectedContent))
	}
	fmt.Fprintf(&b, "\n[yellow]Message:[white]\n%s\n", tview.Escape(failure.Message))
	fmt.Fprintf(&b, "\n[gray]Duration: %.2fs[white]\n", failure.DurationSeconds)

	return b.String()
}

// formatFailureStats formats the header line for a failure
func formatFailureStats(failure domain.CaseFailure, number int) string {
	path := failure.FilePath
	if path == "" {
		path = "Unknown path"
	}
	return fmt.Sprintf("[cyan]path:[white] [yellow]%s[white]::[yellow]%s[white]\n",
		tview.Escape(path), tview.Escape(caseLabel(failure, number-1)))
}
