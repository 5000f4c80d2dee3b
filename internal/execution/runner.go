package execution

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"navcheck/internal/check"
	"navcheck/internal/domain"
)

// CaseChecker runs the navigation check for one case
type CaseChecker interface {
	Run(ctx context.Context, nc domain.NavigationCase) (check.Outcome, error)
}

// Runner executes a single navigation case
type Runner struct {
	checker CaseChecker
	logger  *zap.Logger
}

// NewRunner creates a new Runner
func NewRunner(checker CaseChecker, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{checker: checker, logger: logger.With(zap.String("component", "runner"))}
}

// Run checks one case and times it. A panicking check fails the case instead
// of the run; its resources are already released by then.
func (r *Runner) Run(ctx context.Context, nc domain.NavigationCase, workerID int) (result domain.CaseResult) {
	start := time.Now()
	result = domain.CaseResult{Case: nc, WorkerID: workerID}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("check panicked", zap.String("case", nc.Name), zap.Any("panic", rec))
			result.Success = false
			result.Error = fmt.Errorf("check panicked: %v", rec)
		}
		result.Duration = time.Since(start)
	}()

	out, err := r.checker.Run(ctx, nc)
	result.FinalURL = out.FinalURL
	result.Success = err == nil
	result.Error = err

	if err != nil {
		r.logger.Info("case failed",
			zap.String("case", nc.Name),
			zap.Int("worker", workerID),
			zap.String("kind", string(domain.KindOf(err))),
			zap.Error(err))
	} else {
		r.logger.Debug("case passed", zap.String("case", nc.Name), zap.Int("worker", workerID))
	}
	return result
}
