package models

import "time"

// RunStatus is the lifecycle state of a scraper run.
type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// Terminal reports whether the status is final. A run must never move from a
// terminal status back to queued or running.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunCompleted, RunFailed, RunCancelled:
		return true
	}
	return false
}

// ScrapeRun is one execution of a scraper slot against a job board.
// Result counts are nil until the run reaches a terminal status.
type ScrapeRun struct {
	ID           string     `json:"id"`
	ICPID        string     `json:"icp_id"`
	ScraperIndex *int       `json:"scraper_index,omitempty"`
	Status       RunStatus  `json:"status"`
	JobsFound    *int       `json:"jobs_found,omitempty"`
	Companies    *int       `json:"companies_found,omitempty"`
	NewCompanies *int       `json:"new_companies,omitempty"`
	LeadsCreated *int       `json:"leads_created,omitempty"`
	Duration     *int       `json:"duration_seconds,omitempty"`
	Error        string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// CleanupResult reports how many stale runs a cleanup call marked failed.
type CleanupResult struct {
	Cleaned int `json:"cleaned"`
}
