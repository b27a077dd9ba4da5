package models

import "time"

// Lead is a contact at a discovered company.
type Lead struct {
	ID          string     `json:"id"`
	ICPID       string     `json:"icp_id"`
	CompanySlug string     `json:"company_slug"`
	Name        string     `json:"name"`
	Title       string     `json:"title,omitempty"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	EnrichedAt  *time.Time `json:"enriched_at,omitempty"`
}
