package models

import "time"

// ScrapeJob is a unit of work for the scraper frontier: one run of one
// scraper slot against one job board.
type ScrapeJob struct {
	RunID        string    `json:"run_id"`
	ICPID        string    `json:"icp_id"`
	ScraperIndex int       `json:"scraper_index"`
	Board        string    `json:"board"`
	Query        string    `json:"query"`
	CreatedAt    time.Time `json:"created_at"`
}

// PhoneJob requests phone enrichment for a single lead.
type PhoneJob struct {
	LeadID    string    `json:"lead_id"`
	ICPID     string    `json:"icp_id"`
	CreatedAt time.Time `json:"created_at"`
}
