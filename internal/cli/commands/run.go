package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"navcheck/internal/browser"
	"navcheck/internal/check"
	"navcheck/internal/discovery"
	"navcheck/internal/domain"
	"navcheck/internal/execution"
	"navcheck/internal/metrics"
	"navcheck/internal/report"
	"navcheck/internal/storage"
	"navcheck/internal/ui"
)

// RunCommand handles the run command
type RunCommand struct {
	env     *Env
	scanner *discovery.Scanner
	parser  *discovery.Parser
	filter  *discovery.Filter
}

// NewRunCommand creates a new RunCommand
func NewRunCommand(
	env *Env,
	scanner *discovery.Scanner,
	parser *discovery.Parser,
	filter *discovery.Filter,
) *RunCommand {
	return &RunCommand{
		env:     env,
		scanner: scanner,
		parser:  parser,
		filter:  filter,
	}
}

// Execute runs the command
func (rc *RunCommand) Execute(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return rc.run(ctx)
}

func (rc *RunCommand) run(ctx context.Context) error {
	cfg := rc.env.Config
	logger := rc.env.logger()
	if err := cfg.Validate(); err != nil {
		return err
	}

	st, closeStorage := openStorage(rc.env)
	defer closeStorage()

	cases, err := rc.discover(st)
	if err != nil {
		return err
	}
	if len(cases) == 0 {
		fmt.Fprintln(rc.env.Out, color.YellowString("No navigation cases to run"))
		return nil
	}

	waitUntil, _ := browser.ParseReadiness(cfg.WaitUntil)
	driver, err := browser.New(cfg.Browser, browser.Options{
		Headless: cfg.Headless,
		Engine:   cfg.Engine,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("failed to start %s backend: %w", cfg.Browser, err)
	}
	defer func() {
		if err := driver.Close(); err != nil {
			logger.Warn("failed to close browser driver", zap.Error(err))
		}
	}()
	tracker := browser.NewTracker(driver)

	checker := check.New(tracker, check.Options{
		WaitUntil:         waitUntil,
		NavigationTimeout: cfg.NavigationTimeout,
		ContentTimeout:    cfg.ContentTimeout,
		Logger:            logger,
	})
	runner := execution.NewRunner(checker, logger)
	pool := execution.NewWorkerPool(runner, execution.NewRoundRobinScheduler(), cfg.Workers, cfg.RunTimeout, logger)
	pool.SetProgress(ui.NewProgressBar(len(cases), rc.env.Err))

	results, duration, err := pool.Execute(ctx, cases, cfg.Flags.FailFast)
	if err != nil {
		return err
	}

	scopes := report.Scopes{Acquired: tracker.Acquired(), Released: tracker.Released()}
	if !tracker.Balanced() {
		logger.Error("browser scopes leaked", zap.Int64("acquired", scopes.Acquired), zap.Int64("released", scopes.Released))
	}

	output := report.NewBuilder(cfg.Browser).Output(results, duration, cfg.Workers, scopes)
	// History failures are logged by the store; only the JSON results can fail the run.
	if err := st.Save(output); err != nil {
		return fmt.Errorf("failed to save run results: %w", err)
	}

	if cfg.MetricsFile != "" {
		collector := metrics.NewCollector(logger)
		collector.ObserveResults(results)
		collector.SetScopes(scopes.Acquired, scopes.Released)
		if err := collector.WriteTextfile(cfg.MetricsFile); err != nil {
			return err
		}
	}

	rc.env.formatter().PrintMetaStats(output)

	if output.Meta.FailedCases == 0 {
		return nil
	}
	if cfg.Flags.OpenFailures {
		if err := ui.NewFailureViewer(st, logger).View(output); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: %d of %d", ErrCasesFailed, output.Meta.FailedCases, output.Meta.TotalCases)
}

// discover scans, parses and filters the cases of this run
func (rc *RunCommand) discover(st storage.Storage) ([]domain.NavigationCase, error) {
	cfg := rc.env.Config

	files, err := rc.scanner.Scan(cfg.GetCasesPath())
	if err != nil {
		return nil, err
	}
	cases, err := rc.parser.ParseFiles(files)
	if err != nil {
		return nil, err
	}

	cases = rc.filter.FilterByName(cases, cfg.Flags.NameFilter)

	if cfg.Flags.OnlyFailed {
		last, err := st.Load()
		if errors.Is(err, storage.ErrNoResults) {
			fmt.Fprintln(rc.env.Out, color.YellowString("No previous run found; nothing to rerun"))
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load last run: %w", err)
		}
		cases = rc.filter.FilterFailed(cases, last.Details)
	}
	return cases, nil
}
