package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"

	"navcheck/internal/browser"
	"navcheck/internal/logging"
)

// Config holds all configuration for the application
type Config struct {
	// Project settings
	ProjectPath string
	CasesPath   string

	// Output settings
	OutputJSONFile string
	OutputJSONDir  string
	MetricsFile    string

	// Execution settings
	Workers           int
	Browser           string
	Engine            string
	Headless          bool
	WaitUntil         string
	NavigationTimeout time.Duration
	ContentTimeout    time.Duration
	RunTimeout        time.Duration // 0 means no global timeout

	// Run history, optional
	Database Database

	// Logging
	LogLevel  string
	LogFormat string

	// Paths to ignore when scanning
	PathsToIgnore []string

	// Command flags
	Flags Flags
}

// Database holds MySQL connection settings for run history. DSN wins over
// the individual fields; history is off when neither DSN nor Host is set.
type Database struct {
	DSN      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// Flags holds command-line flags. Zero values mean "not given".
type Flags struct {
	Workers           int
	CasesPath         string
	NameFilter        string
	Browser           string
	Headless          *bool
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

// New creates a new Config with defaults
func New() *Config {
	cfg := &Config{
		ProjectPath:       DefaultProjectPath,
		CasesPath:         DefaultCasesPath,
		OutputJSONFile:    DefaultOutputJSONFile,
		OutputJSONDir:     DefaultOutputJSONDir,
		Workers:           DefaultWorkers,
		Browser:           DefaultBrowser,
		Engine:            DefaultEngine,
		Headless:          true,
		WaitUntil:         DefaultWaitUntil,
		NavigationTimeout: DefaultNavigationTimeout,
		ContentTimeout:    DefaultContentTimeout,
		LogLevel:          DefaultLogLevel,
		LogFormat:         "console",
		Database: Database{
			Port: "3306",
			User: "root",
			Name: DefaultDatabaseName,
		},
	}
	// Copy default paths to ignore
	cfg.PathsToIgnore = make([]string, len(DefaultPathsToIgnore))
	copy(cfg.PathsToIgnore, DefaultPathsToIgnore)
	return cfg
}

// LoadEnv applies NAVCHECK_* settings from the process environment and from
// .env in the project directory. Process variables take precedence.
func (c *Config) LoadEnv() error {
	dotenv, err := godotenv.Read(filepath.Join(c.ProjectPath, ".env"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read .env: %w", err)
	}

	return c.ApplyEnv(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	})
}

// ApplyEnv applies NAVCHECK_* settings read through lookup
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return "", false
		}
		v = strings.TrimSpace(v)
		return v, v != ""
	}

	strs := map[string]*string{
		"CASES_PATH":   &c.CasesPath,
		"BROWSER":      &c.Browser,
		"ENGINE":       &c.Engine,
		"WAIT_UNTIL":   &c.WaitUntil,
		"METRICS_FILE": &c.MetricsFile,
		"LOG_LEVEL":    &c.LogLevel,
		"LOG_FORMAT":   &c.LogFormat,
		"DB_DSN":       &c.Database.DSN,
		"DB_HOST":      &c.Database.Host,
		"DB_PORT":      &c.Database.Port,
		"DB_USERNAME":  &c.Database.User,
		"DB_PASSWORD":  &c.Database.Password,
		"DB_DATABASE":  &c.Database.Name,
	}
	for name, dst := range strs {
		if v, ok := get(name); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"NAV_TIMEOUT":     &c.NavigationTimeout,
		"CONTENT_TIMEOUT": &c.ContentTimeout,
		"TIMEOUT":         &c.RunTimeout,
	}
	for name, dst := range durations {
		v, ok := get(name)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
		}
		*dst = d
	}

	if v, ok := get("WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sWORKERS: %w", EnvPrefix, err)
		}
		c.Workers = n
	}
	if v, ok := get("HEADLESS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sHEADLESS: %w", EnvPrefix, err)
		}
		c.Headless = b
	}

	return nil
}

// Apply stores flags and lets the ones that were given override the config
func (c *Config) Apply(flags Flags) {
	c.Flags = flags

	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.Browser != "" {
		c.Browser = flags.Browser
	}
	if flags.Headless != nil {
		c.Headless = *flags.Headless
	}
	if flags.WaitUntil != "" {
		c.WaitUntil = flags.WaitUntil
	}
	if flags.NavigationTimeout > 0 {
		c.NavigationTimeout = flags.NavigationTimeout
	}
	if flags.ContentTimeout > 0 {
		c.ContentTimeout = flags.ContentTimeout
	}
	if flags.RunTimeout > 0 {
		c.RunTimeout = flags.RunTimeout
	}
	if flags.MetricsFile != "" {
		c.MetricsFile = flags.MetricsFile
	}
	if flags.DatabaseDSN != "" {
		c.Database.DSN = flags.DatabaseDSN
	}
}

// Validate rejects settings a run cannot start with
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if err := browser.ValidateBackend(c.Browser); err != nil {
		return err
	}
	if _, err := browser.ParseReadiness(c.WaitUntil); err != nil {
		return err
	}
	if c.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation timeout must be positive, got %s", c.NavigationTimeout)
	}
	if c.ContentTimeout <= 0 {
		return fmt.Errorf("content timeout must be positive, got %s", c.ContentTimeout)
	}
	if c.RunTimeout < 0 {
		return fmt.Errorf("run timeout must not be negative, got %s", c.RunTimeout)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Database.DSN != "" {
		if _, err := mysql.ParseDSN(c.Database.DSN); err != nil {
			return fmt.Errorf("invalid database DSN: %w", err)
		}
	}
	return nil
}

// GetCasesPath returns the path case discovery starts from, using the flag if provided
func (c *Config) GetCasesPath() string {
	if c.Flags.CasesPath != "" {
		// If CasesPath is provided, make it relative to the project if it's not absolute
		if filepath.IsAbs(c.Flags.CasesPath) {
			return c.Flags.CasesPath
		}
		return filepath.Join(c.ProjectPath, c.Flags.CasesPath)
	}

	if filepath.IsAbs(c.CasesPath) {
		return c.CasesPath
	}
	return filepath.Join(c.ProjectPath, c.CasesPath)
}

// GetOutputPath returns the full path to the output JSON file.
// Resolves to an absolute path so run and failures always read/write the same file regardless of cwd.
func (c *Config) GetOutputPath() string {
	p := filepath.Join(c.ProjectPath, c.OutputJSONDir, c.OutputJSONFile)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// HistoryEnabled reports whether run history goes to MySQL
func (c *Config) HistoryEnabled() bool {
	return c.Database.DSN != "" || c.Database.Host != ""
}

// DatabaseDSN returns the DSN of the history database
func (c *Config) DatabaseDSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	mc := mysql.NewConfig()
	mc.User = c.Database.User
	mc.Passwd = c.Database.Password
	mc.Net = "tcp"
	mc.Addr = c.Database.Host + ":" + c.Database.Port
	mc.DBName = c.Database.Name
	mc.ParseTime = true
	return mc.FormatDSN()
}

// ServerDSN returns the DSN of the MySQL server without selecting a database,
// along with the database name the history lives in.
func (c *Config) ServerDSN() (string, string, error) {
	mc, err := mysql.ParseDSN(c.DatabaseDSN())
	if err != nil {
		return "", "", fmt.Errorf("invalid database DSN: %w", err)
	}
	name := mc.DBName
	if name == "" {
		name = c.Database.Name
	}
	mc.DBName = ""
	return mc.FormatDSN(), name, nil
}
