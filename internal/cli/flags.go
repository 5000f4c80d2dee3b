package cli

import (
	"time"

	"navcheck/internal/config"
)

// Flags holds command-line flags
type Flags struct {
	// Global
	ProjectPath string
	LogLevel    string
	LogFormat   string

	Workers           int
	CasesPath         string
	NameFilter        string
	Browser           string
	Headless          bool
	WaitUntil         string
	NavigationTimeout time.Duration
	ContentTimeout    time.Duration
	RunTimeout        time.Duration
	FailFast          bool
	OnlyFailed        bool
	OpenFailures      bool
	ShowCases         bool
	MetricsFile       string
	DatabaseDSN       string
}

// ToConfigFlags converts CLI flags to config flags. changed reports whether
// a flag was given on the command line; it decides flags whose zero value is
// meaningful, such as --headless=false.
func (f *Flags) ToConfigFlags(changed func(name string) bool) config.Flags {
	cf := config.Flags{
		Workers:           f.Workers,
		CasesPath:         f.CasesPath,
		NameFilter:        f.NameFilter,
		Browser:           f.Browser,
		WaitUntil:         f.WaitUntil,
		NavigationTimeout: f.NavigationTimeout,
		ContentTimeout:    f.ContentTimeout,
		RunTimeout:        f.RunTimeout,
		FailFast:          f.FailFast,
		OnlyFailed:        f.OnlyFailed,
		OpenFailures:      f.OpenFailures,
		ShowCases:         f.ShowCases,
		MetricsFile:       f.MetricsFile,
		DatabaseDSN:       f.DatabaseDSN,
	}
	if changed != nil && changed("headless") {
		headless := f.Headless
		cf.Headless = &headless
	}
	return cf
}
