package migration

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navcheck/internal/config"
)

func init() {
	color.NoColor = true
}

func historyConfig() *config.Config {
	cfg := config.New()
	cfg.Database.Host = "127.0.0.1"
	return cfg
}

func TestDatabaseManager_isValidDatabaseName(t *testing.T) {
	dm := NewDatabaseManager(config.New())
	valid := []string{"navcheck", "navcheck_history", "smoke-runs", "db1"}
	invalid := []string{"", "nav;DROP", "a`b", "-leading", "with space", string(make([]byte, 65))}

	for _, name := range valid {
		assert.True(t, dm.isValidDatabaseName(name), name)
	}
	for _, name := range invalid {
		assert.False(t, dm.isValidDatabaseName(name), name)
	}
}

func mockOpener(t *testing.T) (func(string) (*sql.DB, error), sqlmock.Sqlmock, *[]string) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	var dsns []string
	return func(dsn string) (*sql.DB, error) {
		dsns = append(dsns, dsn)
		return db, nil
	}, mock, &dsns
}

func TestDatabaseManager_EnsureDatabase(t *testing.T) {
	existsQuery := regexp.QuoteMeta("SELECT EXISTS(SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA WHERE SCHEMA_NAME = ?)")

	t.Run("creates missing database", func(t *testing.T) {
		open, mock, dsns := mockOpener(t)
		dm := NewDatabaseManager(historyConfig())
		dm.open = open

		mock.ExpectPing()
		mock.ExpectQuery(existsQuery).WithArgs("navcheck").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec(regexp.QuoteMeta("CREATE DATABASE IF NOT EXISTS `navcheck`")).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectClose()

		created, err := dm.EnsureDatabase()
		require.NoError(t, err)
		assert.True(t, created)
		assert.NoError(t, mock.ExpectationsWereMet())
		require.Len(t, *dsns, 1)
		assert.NotContains(t, (*dsns)[0], "/navcheck")
	})

	t.Run("existing database is left alone", func(t *testing.T) {
		open, mock, _ := mockOpener(t)
		dm := NewDatabaseManager(historyConfig())
		dm.open = open

		mock.ExpectPing()
		mock.ExpectQuery(existsQuery).WithArgs("navcheck").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectClose()

		created, err := dm.EnsureDatabase()
		require.NoError(t, err)
		assert.False(t, created)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects unsafe name before connecting", func(t *testing.T) {
		cfg := historyConfig()
		cfg.Database.Name = "nav;drop"
		dm := NewDatabaseManager(cfg)
		dm.open = func(string) (*sql.DB, error) {
			t.Fatal("must not connect")
			return nil, nil
		}

		_, err := dm.EnsureDatabase()
		assert.Error(t, err)
	})

	t.Run("server unreachable", func(t *testing.T) {
		open, mock, _ := mockOpener(t)
		dm := NewDatabaseManager(historyConfig())
		dm.open = open

		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
		mock.ExpectClose()

		_, err := dm.EnsureDatabase()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestSchemaMigrator_Apply(t *testing.T) {
	t.Run("applies pending migrations", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(regexp.QuoteMeta(createMigrationsTableQuery)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta(appliedVersionsQuery)).WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(1))
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS case_failures")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(regexp.QuoteMeta(recordMigrationQuery)).WithArgs(2, "create_case_failures_table").WillReturnResult(sqlmock.NewResult(0, 1))

		var out bytes.Buffer
		applied, err := NewSchemaMigrator(NewDatabaseManager(config.New()), &out, nil).Apply(context.Background(), db)
		require.NoError(t, err)
		assert.Equal(t, 1, applied)
		assert.Contains(t, out.String(), "Applied 1 migration(s)")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nothing pending", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(regexp.QuoteMeta(createMigrationsTableQuery)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta(appliedVersionsQuery)).WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(1).AddRow(2))

		applied, err := NewSchemaMigrator(NewDatabaseManager(config.New()), &bytes.Buffer{}, nil).Apply(context.Background(), db)
		require.NoError(t, err)
		assert.Zero(t, applied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failing statement stops the run", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(regexp.QuoteMeta(createMigrationsTableQuery)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta(appliedVersionsQuery)).WillReturnRows(sqlmock.NewRows([]string{"version"}))
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS runs")).WillReturnError(errors.New("access denied"))

		var out bytes.Buffer
		applied, err := NewSchemaMigrator(NewDatabaseManager(config.New()), &out, nil).Apply(context.Background(), db)
		require.Error(t, err)
		assert.Zero(t, applied)
		assert.Contains(t, err.Error(), "1_create_runs_table")
		assert.Contains(t, out.String(), "access denied")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
