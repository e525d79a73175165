package domain

import "time"

// Run is a finished unification as handed to downstream publishers.
type Run struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time
	Files       int
	FailedFiles int
	Records     []UnifiedRecord
	Quality     QualityReport
}
