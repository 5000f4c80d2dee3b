package commands

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navcheck/internal/cli"
	"navcheck/internal/config"
	"navcheck/internal/domain"
)

func init() {
	color.NoColor = true
}

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><body><h1>Welcome</h1><a id="mail" href="/mail">Mail</a></body></html>`)
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/mail", http.StatusFound)
	})
	mux.HandleFunc("/mail", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="inbox">Inbox</div></body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeCaseFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the CLI with args in a fresh command tree
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := executeEnv(t, nil, args...)
	return out, err
}

// executeEnv is execute with a hook to adjust the Env before the run
func executeEnv(t *testing.T, prepare func(*Env), args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cfg := config.New()
	env := &Env{Config: cfg, Out: &out, Err: &errOut}
	if prepare != nil {
		prepare(env)
	}

	root := &cobra.Command{Use: "navcheck"}
	newCommands(env).Register(root, &cli.Flags{}, cfg)
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)

	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func loadResults(t *testing.T, project string) domain.RunOutput {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(project, config.DefaultOutputJSONDir, config.DefaultOutputJSONFile))
	require.NoError(t, err)
	var output domain.RunOutput
	require.NoError(t, json.Unmarshal(data, &output))
	return output
}

func TestRunCommand_AllPass(t *testing.T) {
	srv := newSite(t)
	project := t.TempDir()
	writeCaseFile(t, project, "cases/site.nav.yaml", fmt.Sprintf(`
cases:
  - name: home
    target_url: %[1]s/
    expected_content: text=Welcome
  - name: login
    target_url: %[1]s/login
    expected_url: %[1]s/mail
    expected_content: css=.inbox
`, srv.URL))

	out, err := execute(t, "run", "--project", project, "-b", "http", "-w", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "All navigation cases passed")

	results := loadResults(t, project)
	assert.Equal(t, 2, results.Meta.TotalCases)
	assert.Equal(t, 2, results.Meta.PassedCases)
	assert.Equal(t, "http", results.Meta.Backend)
	assert.Equal(t, 6, results.Meta.ResourcesAcquired)
	assert.Equal(t, results.Meta.ResourcesAcquired, results.Meta.ResourcesReleased)
	assert.Empty(t, results.Details)
}

func TestRunCommand_HistorySaveFailureKeepsRun(t *testing.T) {
	srv := newSite(t)
	project := t.TempDir()
	writeCaseFile(t, project, "cases/site.nav.yaml", fmt.Sprintf(`
cases:
  - name: home
    target_url: %s/
    expected_content: text=welcome
`, srv.URL))

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO runs")).
		WillReturnError(errors.New("Error 1146: Table 'navcheck.runs' doesn't exist"))
	mock.ExpectRollback()
	mock.ExpectClose()

	var dsn string
	out, logs, err := executeEnv(t, func(env *Env) {
		env.openDB = func(d string) (*sql.DB, error) {
			dsn = d
			return db, nil
		}
	}, "run", "--project", project, "-b", "http", "--db-dsn", "root@tcp(127.0.0.1:3306)/navcheck")

	require.NoError(t, err)
	assert.Equal(t, "root@tcp(127.0.0.1:3306)/navcheck", dsn)
	assert.Contains(t, out, "All navigation cases passed")
	assert.Contains(t, logs, "failed to save run history")
	assert.Contains(t, logs, "navcheck.runs")
	assert.NoError(t, mock.ExpectationsWereMet())

	results := loadResults(t, project)
	assert.Equal(t, 1, results.Meta.PassedCases)
}

func TestRunCommand_Failures(t *testing.T) {
	srv := newSite(t)
	project := t.TempDir()
	writeCaseFile(t, project, "home.nav.yaml", fmt.Sprintf(`
name: home
target_url: %s/
`, srv.URL))
	// The page lands on /mail, not /login.
	writeCaseFile(t, project, "login.nav.yaml", fmt.Sprintf(`
name: login
target_url: %[1]s/login
expected_url: %[1]s/login
`, srv.URL))
	writeCaseFile(t, project, "missing.nav.yaml", fmt.Sprintf(`
name: missing
target_url: %s/mail
expected_content: text=Outbox
`, srv.URL))

	metricsFile := filepath.Join(t.TempDir(), "navcheck.prom")
	out, err := execute(t, "run", "--project", project, "-b", "http", "--metrics-file", metricsFile)
	require.ErrorIs(t, err, ErrCasesFailed)
	assert.Contains(t, out, "2 of 3 navigation case(s) failed")
	assert.Contains(t, out, "[url_mismatch]")
	assert.Contains(t, out, "[content_not_found]")

	results := loadResults(t, project)
	require.Len(t, results.Details, 2)
	assert.Equal(t, "login", results.Details[0].CaseName)
	assert.Equal(t, domain.KindURLMismatch, results.Details[0].Kind)
	assert.Equal(t, srv.URL+"/mail", results.Details[0].ActualURL)
	assert.Equal(t, domain.KindContentNotFound, results.Details[1].Kind)

	metrics, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `navcheck_cases_total{kind="url_mismatch",outcome="failed"} 1`)
	assert.Contains(t, string(metrics), `navcheck_browser_scopes{state="released"} 9`)

	t.Run("rerun only failed", func(t *testing.T) {
		_, err := execute(t, "run", "--project", project, "-b", "http", "--failed")
		require.ErrorIs(t, err, ErrCasesFailed)

		results := loadResults(t, project)
		assert.Equal(t, 2, results.Meta.TotalCases)
		assert.Equal(t, 2, results.Meta.FailedCases)
	})

	t.Run("filter", func(t *testing.T) {
		_, err := execute(t, "run", "--project", project, "-b", "http", "-f", "home")
		require.NoError(t, err)
		assert.Equal(t, 1, loadResults(t, project).Meta.TotalCases)
	})
}

func TestRunCommand_UnreachableHost(t *testing.T) {
	project := t.TempDir()
	writeCaseFile(t, project, "dns.nav.yaml", `
name: dns
target_url: http://nonexistent.invalid/
`)

	_, err := execute(t, "run", "--project", project, "-b", "http", "--nav-timeout", "5s")
	require.ErrorIs(t, err, ErrCasesFailed)

	results := loadResults(t, project)
	require.Len(t, results.Details, 1)
	assert.Equal(t, domain.KindNavigationTimeout, results.Details[0].Kind)
	assert.Equal(t, results.Meta.ResourcesAcquired, results.Meta.ResourcesReleased)
}

func TestRunCommand_InvalidInput(t *testing.T) {
	t.Run("broken case file", func(t *testing.T) {
		project := t.TempDir()
		writeCaseFile(t, project, "bad.nav.yaml", `
name: bad
target_url: https://example.com
wait_until: networkidle2
`)
		_, err := execute(t, "run", "--project", project, "-b", "http")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "networkidle2")
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := execute(t, "run", "--project", t.TempDir(), "-b", "netscape")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "netscape")
	})

	t.Run("missing cases path", func(t *testing.T) {
		_, err := execute(t, "run", "--project", t.TempDir(), "-b", "http", "-t", "nope")
		assert.Error(t, err)
	})

	t.Run("no cases", func(t *testing.T) {
		out, err := execute(t, "run", "--project", t.TempDir(), "-b", "http")
		require.NoError(t, err)
		assert.Contains(t, out, "No navigation cases to run")
	})

	t.Run("failed without previous run", func(t *testing.T) {
		project := t.TempDir()
		writeCaseFile(t, project, "home.nav.yaml", "target_url: https://example.com/\n")
		out, err := execute(t, "run", "--project", project, "-b", "http", "--failed")
		require.NoError(t, err)
		assert.Contains(t, out, "nothing to rerun")
	})
}

func TestListCommand(t *testing.T) {
	project := t.TempDir()
	writeCaseFile(t, project, "site.nav.yaml", `
cases:
  - name: home
    target_url: https://example.com/
  - name: about
    target_url: https://example.com/about
`)
	writeCaseFile(t, project, "broken.nav.yaml", "cases: []\n")

	out, err := execute(t, "list", "--project", project, "-c")
	require.NoError(t, err)
	assert.Contains(t, out, "Error reading case file")
	assert.Contains(t, out, "Found 1 case file(s) with 2 case(s)")
	assert.Contains(t, out, "home https://example.com/")

	out, err = execute(t, "list", "--project", project, "-f", "nomatch")
	require.NoError(t, err)
	assert.Contains(t, out, "No navigation cases found")
}

func TestMigrateCommand_RequiresDatabase(t *testing.T) {
	_, err := execute(t, "migrate", "--project", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no history database configured")
}

func TestFailuresCommand_NoResults(t *testing.T) {
	out, err := execute(t, "failures", "--project", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No run results found")
}
