package domain

import "time"

// CaseResult represents the result of running one navigation case
type CaseResult struct {
	Case     NavigationCase
	Success  bool          // Whether every assertion passed
	FinalURL string        // URL the page reported, empty if navigation never settled
	Error    error         // *CheckError when the case failed
	Duration time.Duration // Time taken, acquisition to release
	WorkerID int
}

// RunMeta contains metadata about a run
type RunMeta struct {
	RunID             string  `json:"run_id"`
	Backend           string  `json:"backend"`
	TotalCases        int     `json:"total_cases"`
	PassedCases       int     `json:"passed_cases"`
	FailedCases       int     `json:"failed_cases"`
	Duration          string  `json:"duration"`
	DurationSeconds   float64 `json:"duration_seconds"`
	Workers           int     `json:"workers"`
	ResourcesAcquired int     `json:"resources_acquired"`
	ResourcesReleased int     `json:"resources_released"`
	Timestamp         string  `json:"timestamp"`
}

// RunOutput is the complete persisted structure of a run
type RunOutput struct {
	Meta    RunMeta       `json:"meta"`
	Details []CaseFailure `json:"details"`
}
