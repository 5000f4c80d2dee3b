package storage

import (
	"errors"

	"go.uber.org/zap"

	"navcheck/internal/config"
	"navcheck/internal/domain"
)

// ErrNoResults is returned by Load when no run has been saved yet
var ErrNoResults = errors.New("no saved run results")

// Storage persists and loads run results (e.g. for the failures viewer).
type Storage interface {
	// Save records a new run.
	Save(output *domain.RunOutput) error
	// Load returns the latest run.
	Load() (*domain.RunOutput, error)
	// SaveOutput rewrites a run already saved (e.g. after toggling resolved flags).
	SaveOutput(output *domain.RunOutput) error
}

// JSONStorage stores the latest run in a JSON file under the configured output path.
type JSONStorage struct {
	cfg *config.Config
}

// NewJSONStorage returns a Storage that reads/writes the config's output JSON path.
func NewJSONStorage(cfg *config.Config) *JSONStorage {
	return &JSONStorage{cfg: cfg}
}

// MultiStorage writes to a primary store and mirrors to secondary ones.
// Loads come from the first store that has results.
type MultiStorage struct {
	stores []Storage
	logger *zap.Logger
}

// NewMultiStorage combines stores; the first is the primary. Only primary
// failures are returned, secondary ones are logged.
func NewMultiStorage(logger *zap.Logger, primary Storage, secondary ...Storage) *MultiStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MultiStorage{stores: append([]Storage{primary}, secondary...), logger: logger}
}

// Save saves to every store
func (m *MultiStorage) Save(output *domain.RunOutput) error {
	return m.each("save", func(s Storage) error { return s.Save(output) })
}

// SaveOutput rewrites the run in every store
func (m *MultiStorage) SaveOutput(output *domain.RunOutput) error {
	return m.each("update", func(s Storage) error { return s.SaveOutput(output) })
}

func (m *MultiStorage) each(op string, fn func(Storage) error) error {
	if err := fn(m.stores[0]); err != nil {
		return err
	}
	for _, s := range m.stores[1:] {
		if err := fn(s); err != nil {
			m.logger.Warn("failed to "+op+" run history", zap.Error(err))
		}
	}
	return nil
}

// Load returns the latest run from the first store that has one
func (m *MultiStorage) Load() (*domain.RunOutput, error) {
	var errs []error
	for _, s := range m.stores {
		output, err := s.Load()
		if err == nil {
			return output, nil
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}
