package domain

// CaseFailure represents a failed navigation case
type CaseFailure struct {
	CaseName        string  `json:"case_name"`
	FilePath        string  `json:"file_path"`
	Kind            Kind    `json:"kind"`
	TargetURL       string  `json:"target_url"`
	ExpectedURL     string  `json:"expected_url"`
	ActualURL       string  `json:"actual_url,omitempty"`
	ExpectedContent string  `json:"expected_content,omitempty"`
	Message         string  `json:"message"`
	DurationSeconds float64 `json:"duration_seconds"`
	Resolved        bool    `json:"resolved,omitempty"` // Track if the failure is marked as resolved
}
