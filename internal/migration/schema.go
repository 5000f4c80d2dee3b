package migration

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

const (
	createMigrationsTableQuery = "CREATE TABLE IF NOT EXISTS schema_migrations (version INT NOT NULL PRIMARY KEY, name VARCHAR(255) NOT NULL, applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP)"
	appliedVersionsQuery       = "SELECT version FROM schema_migrations"
	recordMigrationQuery       = "INSERT INTO schema_migrations (version, name) VALUES (?, ?)"
)

// SchemaMigrator applies the history schema migrations that have not run yet
type SchemaMigrator struct {
	databaseManager *DatabaseManager
	migrations      []Migration
	out             io.Writer
	logger          *zap.Logger
}

// NewSchemaMigrator creates a new SchemaMigrator writing progress to out
func NewSchemaMigrator(dbManager *DatabaseManager, out io.Writer, logger *zap.Logger) *SchemaMigrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchemaMigrator{
		databaseManager: dbManager,
		migrations:      Migrations,
		out:             out,
		logger:          logger.With(zap.String("component", "migrator")),
	}
}

// Run creates the database if needed and applies pending migrations
func (sm *SchemaMigrator) Run(ctx context.Context) error {
	fmt.Fprintln(sm.out, color.CyanString("\n╔════════════════════════════════════════════════════════════╗"))
	fmt.Fprintln(sm.out, color.CyanString("║                Migrating Run History Schema                ║"))
	fmt.Fprintln(sm.out, color.CyanString("╚════════════════════════════════════════════════════════════╝"))

	created, err := sm.databaseManager.EnsureDatabase()
	if err != nil {
		return fmt.Errorf("failed to check database: %w", err)
	}
	if created {
		fmt.Fprintln(sm.out, color.GreenString("✓ Created history database"))
	}

	db, err := sm.databaseManager.Open()
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := sm.Apply(ctx, db)
	if err != nil {
		return err
	}
	if applied == 0 {
		fmt.Fprintln(sm.out, color.WhiteString("Nothing to migrate"))
	}
	return nil
}

// Apply runs the pending migrations on db and returns how many ran
func (sm *SchemaMigrator) Apply(ctx context.Context, db *sql.DB) (int, error) {
	if _, err := db.ExecContext(ctx, createMigrationsTableQuery); err != nil {
		return 0, fmt.Errorf("failed to create migrations table: %w", err)
	}

	done, err := sm.appliedVersions(ctx, db)
	if err != nil {
		return 0, err
	}

	var pending []Migration
	for _, m := range sm.migrations {
		if !done[m.Version] {
			pending = append(pending, m)
		}
	}
	if len(pending) == 0 {
		return 0, nil
	}

	bar := progressbar.NewOptions(len(pending),
		progressbar.OptionSetDescription(color.CyanString("Migrating: ")),
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        color.CyanString("█"),
			SaucerHead:    color.CyanString("█"),
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(sm.out),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(sm.out, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)

	startTime := time.Now()
	for i, m := range pending {
		if err := sm.applyOne(ctx, db, m); err != nil {
			fmt.Fprintln(sm.out)
			fmt.Fprintln(sm.out, color.RedString("✗ Migration %d_%s failed: %v", m.Version, m.Name, err))
			return i, fmt.Errorf("migration %d_%s failed: %w", m.Version, m.Name, err)
		}
		sm.logger.Debug("migration applied", zap.Int("version", m.Version), zap.String("name", m.Name))
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	fmt.Fprintln(sm.out, color.GreenString("✓ Applied %d migration(s)", len(pending)))
	fmt.Fprintln(sm.out, color.WhiteString("Duration: %s", time.Since(startTime).Round(time.Millisecond)))
	return len(pending), nil
}

func (sm *SchemaMigrator) appliedVersions(ctx context.Context, db *sql.DB) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, appliedVersionsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	defer rows.Close()

	done := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to read applied migrations: %w", err)
		}
		done[v] = true
	}
	return done, rows.Err()
}

// applyOne runs a migration's statements and records it. MySQL commits DDL
// implicitly, so statements are written to be safe to re-run.
func (sm *SchemaMigrator) applyOne(ctx context.Context, db *sql.DB, m Migration) error {
	for _, stmt := range m.Statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	_, err := db.ExecContext(ctx, recordMigrationQuery, m.Version, m.Name)
	return err
}
