package models

// PhoneStatusSummary reports the state of the phone-enrichment queue.
type PhoneStatusSummary struct {
	Pending int `json:"pending"`
}

// PhoneStatus is the response body of the phone-status endpoint.
type PhoneStatus struct {
	Summary PhoneStatusSummary `json:"summary"`
}

// EnrichResult reports how many phone-enrichment jobs were queued.
type EnrichResult struct {
	Queued int `json:"queued"`
}
