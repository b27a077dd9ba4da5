package models

import "encoding/json"

// CompanyResult is the payload written to the companies topic when a scraper
// run discovers a company not seen before for the ICP.
type CompanyResult struct {
	RunID   string  `json:"run_id"`
	ICPID   string  `json:"icp_id"`
	Company Company `json:"company"`
}

// LeadResult is the payload written to the leads topic when a lead is created
// or its contact data changes.
type LeadResult struct {
	RunID string `json:"run_id,omitempty"`
	ICPID string `json:"icp_id"`
	Lead  Lead   `json:"lead"`
}

// NewCompanyResult marshals a company discovery payload.
func NewCompanyResult(runID string, company Company) ([]byte, error) {
	return json.Marshal(CompanyResult{
		RunID:   runID,
		ICPID:   company.ICPID,
		Company: company,
	})
}

// NewLeadResult marshals a lead payload.
func NewLeadResult(runID string, lead Lead) ([]byte, error) {
	return json.Marshal(LeadResult{
		RunID: runID,
		ICPID: lead.ICPID,
		Lead:  lead,
	})
}
