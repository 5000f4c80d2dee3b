// Package report turns case results into the records a run persists.
package report

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"navcheck/internal/domain"
)

// Scopes are the browser scopes a run acquired and released
type Scopes struct {
	Acquired int64
	Released int64
}

// Builder builds failure records and run output
type Builder struct {
	backend string
	now     func() time.Time
	newID   func() string
}

// NewBuilder creates a Builder for runs on backend
func NewBuilder(backend string) *Builder {
	return &Builder{
		backend: backend,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
}

// Failure converts a failed result into its persisted record
func (b *Builder) Failure(r domain.CaseResult) domain.CaseFailure {
	f := domain.CaseFailure{
		CaseName:        r.Case.Name,
		FilePath:        r.Case.File,
		Kind:            domain.KindOf(r.Error),
		TargetURL:       r.Case.TargetURL,
		ExpectedURL:     r.Case.ExpectedURL,
		ActualURL:       r.FinalURL,
		ExpectedContent: r.Case.ExpectedContent,
		DurationSeconds: r.Duration.Seconds(),
	}

	var ce *domain.CheckError
	switch {
	case errors.As(r.Error, &ce):
		f.Message = ce.Detail()
		if ce.Kind == domain.KindURLMismatch {
			f.ActualURL = ce.Actual
		}
	case r.Error != nil:
		f.Message = r.Error.Error()
	default:
		f.Message = "failed"
	}
	return f
}

// Failures converts every failed result, in order
func (b *Builder) Failures(results []domain.CaseResult) []domain.CaseFailure {
	failures := make([]domain.CaseFailure, 0)
	for _, r := range results {
		if !r.Success {
			failures = append(failures, b.Failure(r))
		}
	}
	return failures
}

// Output builds the persisted output of a run
func (b *Builder) Output(results []domain.CaseResult, duration time.Duration, workers int, scopes Scopes) *domain.RunOutput {
	passed, failed := Counts(results)
	return &domain.RunOutput{
		Meta: domain.RunMeta{
			RunID:             b.newID(),
			Backend:           b.backend,
			TotalCases:        len(results),
			PassedCases:       passed,
			FailedCases:       failed,
			Duration:          duration.String(),
			DurationSeconds:   duration.Seconds(),
			Workers:           workers,
			ResourcesAcquired: int(scopes.Acquired),
			ResourcesReleased: int(scopes.Released),
			Timestamp:         b.now().Format(time.RFC3339),
		},
		Details: b.Failures(results),
	}
}

// Counts returns how many results passed and failed
func Counts(results []domain.CaseResult) (passed, failed int) {
	for _, r := range results {
		if r.Success {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}

// GroupByFile groups failures by case file, keeping first-seen file order
func GroupByFile(failures []domain.CaseFailure) ([]string, map[string][]domain.CaseFailure) {
	var files []string
	groups := make(map[string][]domain.CaseFailure)
	for _, f := range failures {
		if _, ok := groups[f.FilePath]; !ok {
			files = append(files, f.FilePath)
		}
		groups[f.FilePath] = append(groups[f.FilePath], f)
	}
	return files, groups
}
