// Package store persists leadhound state in Redis: run records, ICP
// definitions, discovered companies and leads, the company dedupe set, and
// the phone-enrichment pending counter.
package store

import (
	"context"
	"time"

	"leadhound/internal/models"
)

// RunStore persists scraper-run records.
type RunStore interface {
	SaveRun(ctx context.Context, run models.ScrapeRun) error
	GetRun(ctx context.Context, icpID, runID string) (models.ScrapeRun, bool, error)
	ListRuns(ctx context.Context, icpID string) ([]models.ScrapeRun, error)
	// CleanupStale marks non-terminal runs created more than olderThan ago as
	// failed and returns how many were changed.
	CleanupStale(ctx context.Context, icpID string, olderThan time.Duration) (int, error)
}

// ICPStore persists ICP definitions and their aggregate counters.
type ICPStore interface {
	SaveICP(ctx context.Context, icp models.ICP) error
	GetICP(ctx context.Context, id string) (models.ICP, bool, error)
	BumpSummary(ctx context.Context, icpID string, fields map[string]int64) error
	Summary(ctx context.Context, icpID string) (models.ICPSummary, error)
}

// CompanyStore persists discovered companies and the per-ICP dedupe set.
type CompanyStore interface {
	// SeenCompany records the company slug for the ICP and reports whether it
	// was new. The dedupe entry expires with the store TTL.
	SeenCompany(ctx context.Context, icpID, slug string) (bool, error)
	AddCompany(ctx context.Context, company models.Company) error
	Companies(ctx context.Context, icpID string, limit int) ([]models.Company, error)
}

// LeadStore persists leads.
type LeadStore interface {
	SaveLead(ctx context.Context, lead models.Lead) error
	GetLead(ctx context.Context, id string) (models.Lead, bool, error)
	Leads(ctx context.Context, icpID string, limit int) ([]models.Lead, error)
}

// PhoneCounter tracks how many phone-enrichment jobs are in flight.
type PhoneCounter interface {
	AddPendingPhones(ctx context.Context, delta int) (int, error)
	PendingPhones(ctx context.Context) (int, error)
}

// Store is the full persistence surface the API service depends on.
type Store interface {
	RunStore
	ICPStore
	CompanyStore
	LeadStore
	PhoneCounter
}
