package config

import "time"

const (
	// DefaultProjectPath is the default project path
	DefaultProjectPath = "."
	// DefaultCasesPath is the default path, relative to the project, where case discovery starts
	DefaultCasesPath = "."
	// DefaultOutputJSONFile is the default output JSON file name
	DefaultOutputJSONFile = "navcheck-results.json"
	// DefaultOutputJSONDir is the default output directory
	DefaultOutputJSONDir = ".navcheck"
	// DefaultWorkers is the default number of cases run concurrently
	DefaultWorkers = 4
	// DefaultBrowser is the default automation backend
	DefaultBrowser = "playwright"
	// DefaultEngine is the default browser engine for the playwright backend
	DefaultEngine = "chromium"
	// DefaultWaitUntil is the default readiness criterion
	DefaultWaitUntil = "load"
	// DefaultNavigationTimeout bounds the wait for the readiness criterion
	DefaultNavigationTimeout = 30 * time.Second
	// DefaultContentTimeout bounds the wait for expected content
	DefaultContentTimeout = 5 * time.Second
	// DefaultLogLevel keeps the progress bar readable
	DefaultLogLevel = "warn"
	// DefaultDatabaseName is the MySQL database used for run history
	DefaultDatabaseName = "navcheck"
)

// EnvPrefix prefixes every environment variable navcheck reads
const EnvPrefix = "NAVCHECK_"

// DefaultPathsToIgnore are the default directories to ignore when scanning for cases
var DefaultPathsToIgnore = []string{
	"vendor",
	"node_modules",
	"testdata",
	DefaultOutputJSONDir,
}
