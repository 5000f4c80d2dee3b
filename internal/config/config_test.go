package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_GetCasesPath(t *testing.T) {
	tests := []struct {
		name     string
		config   *Config
		expected string
	}{
		{
			name: "default path",
			config: &Config{
				ProjectPath: ".",
				CasesPath:   ".",
				Flags:       Flags{},
			},
			expected: ".",
		},
		{
			name: "configured cases path",
			config: &Config{
				ProjectPath: "/project",
				CasesPath:   "smoke",
			},
			expected: "/project/smoke",
		},
		{
			name: "with cases path flag",
			config: &Config{
				ProjectPath: "/project",
				CasesPath:   ".",
				Flags: Flags{
					CasesPath: "cases",
				},
			},
			expected: "/project/cases",
		},
		{
			name: "absolute cases path",
			config: &Config{
				ProjectPath: "/project",
				CasesPath:   ".",
				Flags: Flags{
					CasesPath: "/absolute/path",
				},
			},
			expected: "/absolute/path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.config.GetCasesPath()
			if result != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.ProjectPath != DefaultProjectPath {
		t.Errorf("expected ProjectPath %s, got %s", DefaultProjectPath, cfg.ProjectPath)
	}

	if cfg.Workers != DefaultWorkers {
		t.Errorf("expected Workers %d, got %d", DefaultWorkers, cfg.Workers)
	}

	if len(cfg.PathsToIgnore) != len(DefaultPathsToIgnore) {
		t.Errorf("expected %d paths to ignore, got %d", len(DefaultPathsToIgnore), len(cfg.PathsToIgnore))
	}

	assert.True(t, cfg.Headless)
	assert.False(t, cfg.HistoryEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestConfig_ApplyEnv(t *testing.T) {
	env := map[string]string{
		"NAVCHECK_BROWSER":         "http",
		"NAVCHECK_HEADLESS":        "false",
		"NAVCHECK_WAIT_UNTIL":      "networkidle",
		"NAVCHECK_NAV_TIMEOUT":     "45s",
		"NAVCHECK_CONTENT_TIMEOUT": "2s",
		"NAVCHECK_TIMEOUT":         "5m",
		"NAVCHECK_WORKERS":         "8",
		"NAVCHECK_LOG_LEVEL":       " debug ",
		"NAVCHECK_METRICS_FILE":    "",
		"OTHER_BROWSER":            "chromedp",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := New()
	require.NoError(t, cfg.ApplyEnv(lookup))

	assert.Equal(t, "http", cfg.Browser)
	assert.False(t, cfg.Headless)
	assert.Equal(t, "networkidle", cfg.WaitUntil)
	assert.Equal(t, 45*time.Second, cfg.NavigationTimeout)
	assert.Equal(t, 2*time.Second, cfg.ContentTimeout)
	assert.Equal(t, 5*time.Minute, cfg.RunTimeout)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Empty(t, cfg.MetricsFile)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_ApplyEnvInvalid(t *testing.T) {
	tests := map[string]string{
		"NAVCHECK_WORKERS":     "many",
		"NAVCHECK_HEADLESS":    "sometimes",
		"NAVCHECK_NAV_TIMEOUT": "30",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			cfg := New()
			err := cfg.ApplyEnv(func(k string) (string, bool) {
				if k == key {
					return value, true
				}
				return "", false
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestConfig_LoadEnvDotenv(t *testing.T) {
	dir := t.TempDir()
	dotenv := strings.Join([]string{
		"NAVCHECK_BROWSER=chromedp",
		"NAVCHECK_DB_HOST=db.internal",
		"NAVCHECK_DB_PASSWORD=secret",
	}, "\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(dotenv), 0644))
	t.Setenv("NAVCHECK_BROWSER", "http")

	cfg := New()
	cfg.ProjectPath = dir
	require.NoError(t, cfg.LoadEnv())

	assert.Equal(t, "http", cfg.Browser, "process environment wins over .env")
	assert.True(t, cfg.HistoryEnabled())

	dsn, err := mysql.ParseDSN(cfg.DatabaseDSN())
	require.NoError(t, err)
	assert.Equal(t, "root", dsn.User)
	assert.Equal(t, "secret", dsn.Passwd)
	assert.Equal(t, "db.internal:3306", dsn.Addr)
	assert.Equal(t, "navcheck", dsn.DBName)
	assert.True(t, dsn.ParseTime)

	server, name, err := cfg.ServerDSN()
	require.NoError(t, err)
	assert.Equal(t, "navcheck", name)
	serverCfg, err := mysql.ParseDSN(server)
	require.NoError(t, err)
	assert.Empty(t, serverCfg.DBName)
	assert.Equal(t, "db.internal:3306", serverCfg.Addr)
}

func TestConfig_LoadEnvWithoutDotenv(t *testing.T) {
	cfg := New()
	cfg.ProjectPath = t.TempDir()
	assert.NoError(t, cfg.LoadEnv())
}

func TestConfig_Apply(t *testing.T) {
	headed := false
	cfg := New()
	cfg.Apply(Flags{
		Workers:           2,
		Browser:           "http",
		Headless:          &headed,
		WaitUntil:         "commit",
		NavigationTimeout: time.Second,
		RunTimeout:        time.Minute,
		DatabaseDSN:       "user:pw@tcp(localhost:3306)/history",
	})

	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "http", cfg.Browser)
	assert.False(t, cfg.Headless)
	assert.Equal(t, "commit", cfg.WaitUntil)
	assert.Equal(t, time.Second, cfg.NavigationTimeout)
	assert.Equal(t, DefaultContentTimeout, cfg.ContentTimeout)
	assert.Equal(t, time.Minute, cfg.RunTimeout)
	assert.Equal(t, "user:pw@tcp(localhost:3306)/history", cfg.DatabaseDSN())

	_, name, err := cfg.ServerDSN()
	require.NoError(t, err)
	assert.Equal(t, "history", name)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"zero workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"unknown backend", func(c *Config) { c.Browser = "lynx" }, "backend"},
		{"invalid readiness", func(c *Config) { c.WaitUntil = "networkidle2" }, "readiness"},
		{"zero navigation timeout", func(c *Config) { c.NavigationTimeout = 0 }, "navigation timeout"},
		{"zero content timeout", func(c *Config) { c.ContentTimeout = 0 }, "content timeout"},
		{"negative run timeout", func(c *Config) { c.RunTimeout = -time.Second }, "run timeout"},
		{"invalid log level", func(c *Config) { c.LogLevel = "loud" }, "log level"},
		{"invalid dsn", func(c *Config) { c.Database.DSN = "not a dsn" }, "DSN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestConfig_GetOutputPath(t *testing.T) {
	cfg := New()
	cfg.ProjectPath = "/project"
	assert.Equal(t, "/project/.navcheck/navcheck-results.json", cfg.GetOutputPath())
}
