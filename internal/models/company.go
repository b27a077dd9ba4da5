package models

import "time"

// Company is a hiring company discovered by a scraper run.
type Company struct {
	Slug         string    `json:"slug"`
	Name         string    `json:"name"`
	ICPID        string    `json:"icp_id"`
	RunID        string    `json:"run_id"`
	Board        string    `json:"board"`
	JobTitle     string    `json:"job_title,omitempty"`
	JobURL       string    `json:"job_url,omitempty"`
	Location     string    `json:"location,omitempty"`
	DiscoveredAt time.Time `json:"discovered_at"`
}
