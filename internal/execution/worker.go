package execution

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"navcheck/internal/domain"
)

// errStopped is returned by a worker to stop the group on the first failure
var errStopped = errors.New("stopped after first failure")

// ErrRunTimeout is the cancellation cause when the global run timeout expires
var ErrRunTimeout = errors.New("run timeout exceeded")

// WorkerPool manages a pool of workers for parallel case execution
type WorkerPool struct {
	runner     *Runner
	scheduler  Scheduler
	workers    int
	runTimeout time.Duration
	progress   ProgressReporter
	logger     *zap.Logger
}

// NewWorkerPool creates a new WorkerPool. runTimeout of 0 disables the global timeout.
func NewWorkerPool(runner *Runner, scheduler Scheduler, workers int, runTimeout time.Duration, logger *zap.Logger) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkerPool{
		runner:     runner,
		scheduler:  scheduler,
		workers:    workers,
		runTimeout: runTimeout,
		logger:     logger.With(zap.String("component", "worker_pool")),
	}
}

// SetProgress sets the progress reporter for the worker pool
func (wp *WorkerPool) SetProgress(progress ProgressReporter) {
	wp.progress = progress
}

// Execute runs cases on the pool. Results come back in input order.
//
// With failFast the first failing case stops the workers; cases never started
// are left out of the results. When ctx is cancelled or the run timeout
// expires, cases never started are reported as navigation timeouts.
func (wp *WorkerPool) Execute(ctx context.Context, cases []domain.NavigationCase, failFast bool) ([]domain.CaseResult, time.Duration, error) {
	if len(cases) == 0 {
		return nil, 0, nil
	}

	startTime := time.Now()
	if wp.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, wp.runTimeout, ErrRunTimeout)
		defer cancel()
	}

	workerCount := wp.workers
	if workerCount > len(cases) {
		workerCount = len(cases)
	}
	buckets := wp.scheduler.Schedule(cases, workerCount)

	var mu sync.Mutex
	var completed, passedCnt, failedCnt int
	var stopped atomic.Bool
	results := make([]domain.CaseResult, 0, len(cases))
	record := func(result domain.CaseResult) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, result)
		completed++
		if result.Success {
			passedCnt++
		} else {
			failedCnt++
		}
		if wp.progress != nil {
			wp.progress.Update(completed, passedCnt, failedCnt)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, bucket := range buckets {
		bucket := bucket
		workerID := i + 1
		g.Go(func() error {
			for _, nc := range bucket {
				if gctx.Err() != nil {
					if stopped.Load() {
						return nil
					}
					record(notStarted(nc, workerID, context.Cause(ctx)))
					continue
				}

				result := wp.runner.Run(gctx, nc, workerID)
				// Cases cut short by fail-fast did not really fail.
				if stopped.Load() && !result.Success && errors.Is(result.Error, context.Canceled) {
					continue
				}
				record(result)

				if failFast && !result.Success {
					stopped.Store(true)
					return errStopped
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, errStopped) {
		return nil, time.Since(startTime), err
	}
	if wp.progress != nil {
		wp.progress.Finish()
	}

	if cause := context.Cause(ctx); cause != nil {
		wp.logger.Warn("run cancelled", zap.Error(cause), zap.Int("completed", completed), zap.Int("cases", len(cases)))
	}

	sortByInput(results, cases)
	return results, time.Since(startTime), nil
}

func notStarted(nc domain.NavigationCase, workerID int, cause error) domain.CaseResult {
	if cause == nil {
		cause = context.Canceled
	}
	return domain.CaseResult{
		Case:     nc,
		WorkerID: workerID,
		Error: &domain.CheckError{
			Kind:            domain.KindNavigationTimeout,
			TargetURL:       nc.TargetURL,
			ExpectedURL:     nc.ExpectedURL,
			ExpectedContent: nc.ExpectedContent,
			Err:             fmt.Errorf("not started: %w", cause),
		},
	}
}

// sortByInput restores the input order of cases, keyed by file and name.
func sortByInput(results []domain.CaseResult, cases []domain.NavigationCase) {
	order := make(map[[2]string]int, len(cases))
	for i, nc := range cases {
		order[[2]string{nc.File, nc.Name}] = i
	}
	sort.SliceStable(results, func(i, j int) bool {
		return order[[2]string{results[i].Case.File, results[i].Case.Name}] <
			order[[2]string{results[j].Case.File, results[j].Case.Name}]
	})
}
