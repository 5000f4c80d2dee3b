package ui

import "navcheck/internal/domain"

// Viewer displays run failures
type Viewer interface {
	View(results *domain.RunOutput) error
}
