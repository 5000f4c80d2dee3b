package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"navcheck/internal/domain"
)

// MySQLStorage appends every run to the run history tables created by
// `navcheck migrate`.
type MySQLStorage struct {
	db *sql.DB
}

// NewMySQLStorage wraps an open database handle
func NewMySQLStorage(db *sql.DB) *MySQLStorage {
	return &MySQLStorage{db: db}
}

// OpenMySQL opens and pings the history database
func OpenMySQL(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}
	return db, nil
}

const (
	insertRunQuery = "INSERT INTO runs (id, backend, total_cases, passed_cases, failed_cases, duration_seconds, workers, resources_acquired, resources_released, started_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"

	insertFailureQuery = "INSERT INTO case_failures (run_id, case_name, file_path, kind, target_url, expected_url, actual_url, expected_content, message, duration_seconds, resolved) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"

	latestRunQuery = "SELECT id, backend, total_cases, passed_cases, failed_cases, duration_seconds, workers, resources_acquired, resources_released, started_at FROM runs ORDER BY created_at DESC, seq DESC LIMIT 1"

	runFailuresQuery = "SELECT case_name, file_path, kind, target_url, expected_url, actual_url, expected_content, message, duration_seconds, resolved FROM case_failures WHERE run_id = ? ORDER BY id"

	updateResolvedQuery = "UPDATE case_failures SET resolved = ? WHERE run_id = ? AND file_path = ? AND case_name = ?"
)

// Save inserts the run and its failures in one transaction
func (s *MySQLStorage) Save(output *domain.RunOutput) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	m := output.Meta
	if _, err := tx.Exec(insertRunQuery,
		m.RunID, m.Backend, m.TotalCases, m.PassedCases, m.FailedCases,
		m.DurationSeconds, m.Workers, m.ResourcesAcquired, m.ResourcesReleased, m.Timestamp,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, f := range output.Details {
		if _, err := tx.Exec(insertFailureQuery,
			m.RunID, f.CaseName, f.FilePath, string(f.Kind), f.TargetURL, f.ExpectedURL,
			f.ActualURL, f.ExpectedContent, f.Message, f.DurationSeconds, f.Resolved,
		); err != nil {
			return fmt.Errorf("insert failure %s: %w", f.CaseName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// Load returns the most recent run
func (s *MySQLStorage) Load() (*domain.RunOutput, error) {
	var output domain.RunOutput
	m := &output.Meta
	err := s.db.QueryRow(latestRunQuery).Scan(
		&m.RunID, &m.Backend, &m.TotalCases, &m.PassedCases, &m.FailedCases,
		&m.DurationSeconds, &m.Workers, &m.ResourcesAcquired, &m.ResourcesReleased, &m.Timestamp,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: run history is empty", ErrNoResults)
	}
	if err != nil {
		return nil, fmt.Errorf("query latest run: %w", err)
	}
	m.Duration = time.Duration(m.DurationSeconds * float64(time.Second)).Round(time.Millisecond).String()

	rows, err := s.db.Query(runFailuresQuery, m.RunID)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	output.Details = make([]domain.CaseFailure, 0)
	for rows.Next() {
		var f domain.CaseFailure
		var kind string
		if err := rows.Scan(&f.CaseName, &f.FilePath, &kind, &f.TargetURL, &f.ExpectedURL,
			&f.ActualURL, &f.ExpectedContent, &f.Message, &f.DurationSeconds, &f.Resolved); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		f.Kind = domain.Kind(kind)
		output.Details = append(output.Details, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read failures: %w", err)
	}
	return &output, nil
}

// SaveOutput persists the resolved flags of a saved run
func (s *MySQLStorage) SaveOutput(output *domain.RunOutput) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, f := range output.Details {
		if _, err := tx.Exec(updateResolvedQuery, f.Resolved, output.Meta.RunID, f.FilePath, f.CaseName); err != nil {
			return fmt.Errorf("update failure %s: %w", f.CaseName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit resolved flags: %w", err)
	}
	return nil
}
