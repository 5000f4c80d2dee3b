package execution

import (
	"context"
	"time"

	"navcheck/internal/domain"
)

// Executor runs navigation cases and returns their results
type Executor interface {
	Execute(ctx context.Context, cases []domain.NavigationCase, failFast bool) ([]domain.CaseResult, time.Duration, error)
}

// ProgressReporter receives running totals as cases complete
type ProgressReporter interface {
	Update(completed, passed, failed int)
	Finish()
}
