package ui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"navcheck/internal/domain"
	"navcheck/internal/report"
)

// Formatter formats and displays run output
type Formatter struct {
	projectPath string
	out         io.Writer
}

// NewFormatter creates a new Formatter. Paths are shown relative to
// projectPath; a nil out writes to stdout.
func NewFormatter(projectPath string, out io.Writer) *Formatter {
	if out == nil {
		out = os.Stdout
	}
	return &Formatter{
		projectPath: projectPath,
		out:         out,
	}
}

const (
	tableTop = "┌─────────────────────────────────┬─────────────────────────────┐"
	tableSep = "├─────────────────────────────────┼─────────────────────────────┤"
	tableEnd = "└─────────────────────────────────┴─────────────────────────────┘"
)

func (f *Formatter) row(label string, value string, paint func(format string, a ...interface{}) string) {
	fmt.Fprintf(f.out, "│ %-31s │ %s\n", label, paint("%-27s │", value))
}

// PrintMetaStats prints the statistics table of a run, then its failures
func (f *Formatter) PrintMetaStats(output *domain.RunOutput) {
	meta := output.Meta

	fmt.Fprintln(f.out)
	fmt.Fprintln(f.out, color.CyanString("╔═══════════════════════════════════════════════════════════════╗"))
	fmt.Fprintln(f.out, color.CyanString("║                 Navigation Check Statistics                   ║"))
	fmt.Fprintln(f.out, color.CyanString("╚═══════════════════════════════════════════════════════════════╝"))
	fmt.Fprintln(f.out)

	rows := []struct {
		label string
		value string
		paint func(string, ...interface{}) string
	}{
		{"Total Cases", fmt.Sprint(meta.TotalCases), color.WhiteString},
		{"Passed Cases", fmt.Sprint(meta.PassedCases), color.GreenString},
		{"Failed Cases", fmt.Sprint(meta.FailedCases), color.RedString},
		{"Duration", fmt.Sprintf("%.2fs", meta.DurationSeconds), color.WhiteString},
		{"Workers", fmt.Sprint(meta.Workers), color.WhiteString},
		{"Backend", meta.Backend, color.WhiteString},
		{"Browser Scopes (acq/rel)", fmt.Sprintf("%d/%d", meta.ResourcesAcquired, meta.ResourcesReleased), scopesColor(meta)},
		{"Timestamp", meta.Timestamp, color.WhiteString},
	}

	fmt.Fprintln(f.out, tableTop)
	for i, r := range rows {
		f.row(r.label, r.value, r.paint)
		if i < len(rows)-1 {
			fmt.Fprintln(f.out, tableSep)
		}
	}
	fmt.Fprintln(f.out, tableEnd)

	fmt.Fprintln(f.out)
	if meta.FailedCases == 0 {
		fmt.Fprintln(f.out, color.GreenString("✓ All navigation cases passed!"))
		return
	}
	fmt.Fprintln(f.out, color.RedString("✗ %d of %d navigation case(s) failed", meta.FailedCases, meta.TotalCases))
	fmt.Fprintln(f.out)
	f.PrintFailures(output.Details)
}

func scopesColor(meta domain.RunMeta) func(string, ...interface{}) string {
	if meta.ResourcesAcquired != meta.ResourcesReleased {
		return color.RedString
	}
	return color.WhiteString
}

// PrintFailures prints one block per failure, grouped by case file
func (f *Formatter) PrintFailures(failures []domain.CaseFailure) {
	files, groups := report.GroupByFile(failures)
	for i, file := range files {
		fmt.Fprintln(f.out, color.YellowString(f.relPath(file)))
		for _, failure := range groups[file] {
			fmt.Fprintf(f.out, "  %s %s\n", color.RedString("✗ %s", failure.CaseName), color.New(color.Faint).Sprintf("[%s]", kindLabel(failure.Kind)))
			fmt.Fprintf(f.out, "      %-9s %s\n", "target:", failure.TargetURL)
			fmt.Fprintf(f.out, "      %-9s %s\n", "expected:", failure.ExpectedURL)
			if failure.ActualURL != "" {
				fmt.Fprintf(f.out, "      %-9s %s\n", "actual:", failure.ActualURL)
			}
			if failure.ExpectedContent != "" {
				fmt.Fprintf(f.out, "      %-9s %s\n", "content:", failure.ExpectedContent)
			}
			fmt.Fprintf(f.out, "      %s\n", color.RedString("%s", failure.Message))
		}
		if i < len(files)-1 {
			fmt.Fprintln(f.out)
		}
	}
}

func kindLabel(k domain.Kind) string {
	if k == "" {
		return "error"
	}
	return string(k)
}

// relPath returns path relative to the project when it lies inside it
func (f *Formatter) relPath(path string) string {
	if f.projectPath == "" {
		return path
	}
	rel, err := filepath.Rel(f.projectPath, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}

// PrintCaseList prints discovered cases as a tree of files, optionally with
// their cases. Files and cases present in failures (from the last run) are
// marked with [F].
func (f *Formatter) PrintCaseList(cases []domain.NavigationCase, showCases bool, failures []domain.CaseFailure) {
	failedFiles := make(map[string]bool)
	failedCases := make(map[string]bool)
	for _, failure := range failures {
		if failure.Resolved {
			continue
		}
		file := absPath(failure.FilePath)
		failedFiles[file] = true
		failedCases[file+"\x00"+failure.CaseName] = true
	}

	var files []string
	byFile := make(map[string][]domain.NavigationCase)
	for _, nc := range cases {
		if _, ok := byFile[nc.File]; !ok {
			files = append(files, nc.File)
		}
		byFile[nc.File] = append(byFile[nc.File], nc)
	}

	if showCases {
		fmt.Fprintln(f.out, color.GreenString("Found %d case file(s) with %d case(s):", len(files), len(cases)))
	} else {
		fmt.Fprintln(f.out, color.GreenString("Found %d case file(s):", len(files)))
	}
	fmt.Fprintln(f.out)

	for i, file := range files {
		isLastFile := i == len(files)-1
		abs := absPath(file)

		failMarker := ""
		if failedFiles[abs] {
			failMarker = " " + color.RedString("[F]")
		}
		connector := "├── "
		if isLastFile {
			connector = "└── "
		}
		fmt.Fprintln(f.out, color.CyanString("%s%s", connector, f.relPath(file))+failMarker)

		if !showCases {
			continue
		}

		fileCases := byFile[file]
		for j, nc := range fileCases {
			isLastCase := j == len(fileCases)-1

			var prefix string
			switch {
			case isLastFile && isLastCase:
				prefix = "    └── "
			case isLastFile:
				prefix = "    ├── "
			case isLastCase:
				prefix = "│   └── "
			default:
				prefix = "│   ├── "
			}

			marker := ""
			if failedCases[abs+"\x00"+nc.Name] {
				marker = " " + color.RedString("[F]")
			}
			fmt.Fprintf(f.out, "%s%s %s%s\n", prefix, color.YellowString(nc.Name), color.New(color.Faint).Sprint(nc.TargetURL), marker)
		}

		// Add spacing between files (except for the last one)
		if !isLastFile {
			fmt.Fprintln(f.out)
		}
	}
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
