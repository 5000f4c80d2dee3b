package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"navcheck/internal/migration"
)

// MigrateCommand handles the migrate command
type MigrateCommand struct {
	env *Env
}

// NewMigrateCommand creates a new MigrateCommand
func NewMigrateCommand(env *Env) *MigrateCommand {
	return &MigrateCommand{env: env}
}

// Execute runs the command
func (mc *MigrateCommand) Execute(cmd *cobra.Command, args []string) error {
	cfg := mc.env.Config
	if !cfg.HistoryEnabled() {
		return errors.New("no history database configured: set --db-dsn, NAVCHECK_DB_DSN or NAVCHECK_DB_HOST")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var migrator migration.Migrator = migration.NewSchemaMigrator(migration.NewDatabaseManager(cfg), mc.env.Out, mc.env.logger())
	return migrator.Run(cmd.Context())
}
