package commands

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"navcheck/internal/cli"
	"navcheck/internal/config"
	"navcheck/internal/discovery"
	"navcheck/internal/logging"
	"navcheck/internal/storage"
	"navcheck/internal/ui"
)

// ErrCasesFailed is returned by run when at least one case failed
var ErrCasesFailed = errors.New("navigation cases failed")

// Env is shared by all commands. Logger is set once flags are parsed.
type Env struct {
	Config *config.Config
	Logger *zap.Logger
	Out    io.Writer // reports and listings
	Err    io.Writer // progress and logs

	openDB func(dsn string) (*sql.DB, error)
}

func (e *Env) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Env) openHistory(dsn string) (*sql.DB, error) {
	if e.openDB != nil {
		return e.openDB(dsn)
	}
	return storage.OpenMySQL(dsn)
}

// formatter is built per command so it sees the final project path
func (e *Env) formatter() *ui.Formatter {
	return ui.NewFormatter(e.Config.ProjectPath, e.Out)
}

// Commands holds all CLI commands
type Commands struct {
	env      *Env
	Run      *RunCommand
	List     *ListCommand
	Migrate  *MigrateCommand
	Failures *FailuresCommand
}

// NewCommands creates all commands with dependencies
func NewCommands(cfg *config.Config) *Commands {
	env := &Env{Config: cfg, Out: os.Stdout, Err: os.Stderr}
	return newCommands(env)
}

func newCommands(env *Env) *Commands {
	cfg := env.Config
	scanner := discovery.NewScanner(cfg.PathsToIgnore)
	filter := discovery.NewFilter()
	caseParser := discovery.NewParser()

	return &Commands{
		env:      env,
		Run:      NewRunCommand(env, scanner, caseParser, filter),
		List:     NewListCommand(env, scanner, caseParser, filter),
		Migrate:  NewMigrateCommand(env),
		Failures: NewFailuresCommand(env),
	}
}

// Register registers all commands with cobra
func (c *Commands) Register(rootCmd *cobra.Command, flags *cli.Flags, cfg *config.Config) {
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	rootCmd.PersistentFlags().StringVar(&flags.ProjectPath, "project", config.DefaultProjectPath, "Project directory; .env and the results directory live here")
	rootCmd.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "", "Log level: "+fmt.Sprint(logging.Levels))
	rootCmd.PersistentFlags().StringVar(&flags.LogFormat, "log-format", "", "Log format: console or json")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return c.setup(cmd, flags, cfg)
	}

	applyFlags := func(cmd *cobra.Command, args []string) error {
		// Update config with flags after parsing
		cfg.Apply(flags.ToConfigFlags(cmd.Flags().Changed))
		return nil
	}

	// Run command
	runCmd := &cobra.Command{
		Use:     "run",
		Short:   "Run navigation cases in parallel",
		Long:    "Discover navigation case files, open each target in its own browser scope and check the final URL and expected content",
		RunE:    c.Run.Execute,
		PreRunE: applyFlags,
	}
	runCmd.Flags().IntVarP(&flags.Workers, "workers", "w", 0, fmt.Sprintf("Number of cases checked concurrently (default %d)", config.DefaultWorkers))
	runCmd.Flags().StringVarP(&flags.CasesPath, "path", "t", "", "Path to the folder where case discovery should start")
	runCmd.Flags().StringVarP(&flags.NameFilter, "filter", "f", "", "Filter cases by name or file pattern (supports wildcards, e.g., '*checkout*' or 'home?')")
	runCmd.Flags().StringVarP(&flags.Browser, "browser", "b", "", "Automation backend: playwright, chromedp or http")
	runCmd.Flags().BoolVar(&flags.Headless, "headless", true, "Run the browser headless")
	runCmd.Flags().StringVar(&flags.WaitUntil, "wait-until", "", "Default readiness criterion: load, domcontentloaded, networkidle or commit")
	runCmd.Flags().DurationVar(&flags.NavigationTimeout, "nav-timeout", 0, "Navigation timeout per case")
	runCmd.Flags().DurationVar(&flags.ContentTimeout, "content-timeout", 0, "Default wait for expected content per case")
	runCmd.Flags().DurationVar(&flags.RunTimeout, "timeout", 0, "Timeout for the whole run (0 disables it)")
	runCmd.Flags().BoolVar(&flags.FailFast, "fail-fast", false, "Stop on first case failure")
	runCmd.Flags().BoolVar(&flags.OnlyFailed, "failed", false, "Run only cases that failed in the last run")
	runCmd.Flags().StringVar(&flags.MetricsFile, "metrics-file", "", "Write Prometheus metrics of the run to this textfile")
	runCmd.Flags().StringVar(&flags.DatabaseDSN, "db-dsn", "", "MySQL DSN for run history")
	runCmd.Flags().BoolVar(&flags.OpenFailures, "open-failures", false, "Open the failures viewer when the run finishes with failures")
	rootCmd.AddCommand(runCmd)

	// List command
	listCmd := &cobra.Command{
		Use:     "list",
		Short:   "List discovered navigation cases",
		Long:    "Scan and list all navigation case files without running them",
		RunE:    c.List.Execute,
		PreRunE: applyFlags,
	}
	listCmd.Flags().StringVarP(&flags.NameFilter, "filter", "f", "", "Filter cases by name or file pattern (supports wildcards)")
	listCmd.Flags().StringVarP(&flags.CasesPath, "path", "t", "", "Path to the folder where case discovery should start")
	listCmd.Flags().BoolVarP(&flags.ShowCases, "cases", "c", false, "List the cases of every file")
	rootCmd.AddCommand(listCmd)

	// Migrate command
	migrateCmd := &cobra.Command{
		Use:     "migrate",
		Short:   "Create the run history database and tables",
		Long:    "Create the MySQL run history database if it is missing and apply pending schema migrations",
		RunE:    c.Migrate.Execute,
		PreRunE: applyFlags,
	}
	migrateCmd.Flags().StringVar(&flags.DatabaseDSN, "db-dsn", "", "MySQL DSN for run history")
	rootCmd.AddCommand(migrateCmd)

	// Failures command
	failuresCmd := &cobra.Command{
		Use:     "failures",
		Aliases: []string{"faills"},
		Short:   "View navigation failures interactively",
		Long:    "Display the failures of the last run in an interactive viewer",
		RunE:    c.Failures.Execute,
		PreRunE: applyFlags,
	}
	failuresCmd.Flags().StringVar(&flags.DatabaseDSN, "db-dsn", "", "MySQL DSN for run history")
	rootCmd.AddCommand(failuresCmd)
}

// setup loads the environment and builds the logger. Flags win over env.
func (c *Commands) setup(cmd *cobra.Command, flags *cli.Flags, cfg *config.Config) error {
	if flags.ProjectPath != "" {
		cfg.ProjectPath = flags.ProjectPath
	}
	if err := cfg.LoadEnv(); err != nil {
		return err
	}
	if flags.LogLevel != "" {
		cfg.LogLevel = flags.LogLevel
	}
	if flags.LogFormat != "" {
		cfg.LogFormat = flags.LogFormat
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, c.env.Err)
	if err != nil {
		return err
	}
	c.env.Logger = logger
	return nil
}

// openStorage returns the JSON store, mirrored to MySQL when history is
// configured. The JSON store is primary: history failures, including an
// unreachable database, are logged and never fail the command.
func openStorage(env *Env) (storage.Storage, func()) {
	cfg := env.Config
	jsonStorage := storage.NewJSONStorage(cfg)
	if !cfg.HistoryEnabled() {
		return jsonStorage, func() {}
	}

	db, err := env.openHistory(cfg.DatabaseDSN())
	if err != nil {
		env.logger().Warn("run history disabled", zap.Error(err))
		return jsonStorage, func() {}
	}
	return storage.NewMultiStorage(env.logger(), jsonStorage, storage.NewMySQLStorage(db)), func() {
		if err := db.Close(); err != nil {
			env.logger().Warn("failed to close history database", zap.Error(err))
		}
	}
}
