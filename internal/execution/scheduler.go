package execution

import "navcheck/internal/domain"

// Scheduler distributes cases across workers
type Scheduler interface {
	Schedule(cases []domain.NavigationCase, workerCount int) [][]domain.NavigationCase
}

// RoundRobinScheduler distributes cases evenly across workers
type RoundRobinScheduler struct{}

// NewRoundRobinScheduler creates a new RoundRobinScheduler
func NewRoundRobinScheduler() *RoundRobinScheduler {
	return &RoundRobinScheduler{}
}

// Schedule distributes cases evenly across workers using round-robin
func (s *RoundRobinScheduler) Schedule(cases []domain.NavigationCase, workerCount int) [][]domain.NavigationCase {
	if workerCount <= 0 {
		workerCount = 1
	}

	distribution := make([][]domain.NavigationCase, workerCount)
	for i := range distribution {
		distribution[i] = make([]domain.NavigationCase, 0, len(cases)/workerCount+1)
	}

	for i, nc := range cases {
		workerIndex := i % workerCount
		distribution[workerIndex] = append(distribution[workerIndex], nc)
	}

	return distribution
}
