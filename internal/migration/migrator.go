package migration

import "context"

// Migrator brings the history schema up to date
type Migrator interface {
	Run(ctx context.Context) error
}

// Migration is one versioned schema change
type Migration struct {
	Version    int
	Name       string
	Statements []string
}

// Migrations is the history schema, in order
var Migrations = []Migration{
	{
		Version: 1,
		Name:    "create_runs_table",
		Statements: []string{
			"CREATE TABLE IF NOT EXISTS runs (" +
				"seq BIGINT UNSIGNED NOT NULL AUTO_INCREMENT, " +
				"id CHAR(36) NOT NULL, " +
				"backend VARCHAR(32) NOT NULL, " +
				"total_cases INT NOT NULL, " +
				"passed_cases INT NOT NULL, " +
				"failed_cases INT NOT NULL, " +
				"duration_seconds DOUBLE NOT NULL, " +
				"workers INT NOT NULL, " +
				"resources_acquired INT NOT NULL, " +
				"resources_released INT NOT NULL, " +
				"started_at VARCHAR(40) NOT NULL, " +
				"created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6), " +
				"PRIMARY KEY (seq), " +
				"UNIQUE KEY runs_id_unique (id)" +
				") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4",
		},
	},
	{
		Version: 2,
		Name:    "create_case_failures_table",
		Statements: []string{
			"CREATE TABLE IF NOT EXISTS case_failures (" +
				"id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT, " +
				"run_id CHAR(36) NOT NULL, " +
				"case_name VARCHAR(255) NOT NULL, " +
				"file_path VARCHAR(1024) NOT NULL, " +
				"kind VARCHAR(64) NOT NULL, " +
				"target_url TEXT NOT NULL, " +
				"expected_url TEXT NOT NULL, " +
				"actual_url TEXT NOT NULL, " +
				"expected_content TEXT NOT NULL, " +
				"message TEXT NOT NULL, " +
				"duration_seconds DOUBLE NOT NULL, " +
				"resolved BOOLEAN NOT NULL DEFAULT FALSE, " +
				"PRIMARY KEY (id), " +
				"KEY case_failures_run_id (run_id), " +
				"CONSTRAINT case_failures_run_fk FOREIGN KEY (run_id) REFERENCES runs (id) ON DELETE CASCADE" +
				") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4",
		},
	},
}
