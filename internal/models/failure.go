package models

import "time"

// ScrapeFailure captures a failed scrape or enrichment job for the DLQ.
type ScrapeFailure struct {
	RunID    string    `json:"run_id,omitempty"`
	LeadID   string    `json:"lead_id,omitempty"`
	ICPID    string    `json:"icp_id"`
	Board    string    `json:"board,omitempty"`
	Query    string    `json:"query,omitempty"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}
