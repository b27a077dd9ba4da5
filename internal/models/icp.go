package models

import "time"

// ScraperSlot configures one job-board scraper on an ICP.
type ScraperSlot struct {
	Board string `json:"board"`
	Query string `json:"query"`
}

// ICP is an Ideal Customer Profile: the search definition scraper runs
// execute against.
type ICP struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Keywords  []string      `json:"keywords,omitempty"`
	Scrapers  []ScraperSlot `json:"scrapers"`
	CreatedAt time.Time     `json:"created_at"`
}

// ICPSummary aggregates results across all runs of an ICP.
type ICPSummary struct {
	ICPID        string `json:"icp_id"`
	JobsFound    int    `json:"jobs_found"`
	Companies    int    `json:"companies_found"`
	NewCompanies int    `json:"new_companies"`
	LeadsCreated int    `json:"leads_created"`
	RunsStarted  int    `json:"runs_started"`
	RunsFinished int    `json:"runs_finished"`
}
