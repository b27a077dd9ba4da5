package boards

import (
	"encoding/json"
	"fmt"
)

// Posting is a normalized job posting from any supported board.
type Posting struct {
	Title       string
	CompanyName string
	Location    string
	URL         string
	PublishedAt string
}

// ParsePostings decodes a board search response into normalized postings.
// Postings without a company name are dropped: they cannot seed a prospect.
func ParsePostings(board string, body []byte) ([]Posting, error) {
	switch board {
	case BoardRemotive:
		return parseRemotive(body)
	case BoardMuse:
		return parseMuse(body)
	}
	return nil, fmt.Errorf("unknown board %q", board)
}

func parseRemotive(body []byte) ([]Posting, error) {
	var payload struct {
		Jobs []struct {
			Title                string `json:"title"`
			CompanyName          string `json:"company_name"`
			CandidateRequiredLoc string `json:"candidate_required_location"`
			URL                  string `json:"url"`
			PublicationDate      string `json:"publication_date"`
		} `json:"jobs"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	postings := make([]Posting, 0, len(payload.Jobs))
	for _, job := range payload.Jobs {
		if job.CompanyName == "" {
			continue
		}
		postings = append(postings, Posting{
			Title:       job.Title,
			CompanyName: job.CompanyName,
			Location:    job.CandidateRequiredLoc,
			URL:         job.URL,
			PublishedAt: job.PublicationDate,
		})
	}
	return postings, nil
}

func parseMuse(body []byte) ([]Posting, error) {
	var payload struct {
		Results []struct {
			Name    string `json:"name"`
			Company struct {
				Name string `json:"name"`
			} `json:"company"`
			Locations []struct {
				Name string `json:"name"`
			} `json:"locations"`
			Refs struct {
				LandingPage string `json:"landing_page"`
			} `json:"refs"`
			PublicationDate string `json:"publication_date"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	postings := make([]Posting, 0, len(payload.Results))
	for _, result := range payload.Results {
		if result.Company.Name == "" {
			continue
		}
		location := ""
		if len(result.Locations) > 0 {
			location = result.Locations[0].Name
		}
		postings = append(postings, Posting{
			Title:       result.Name,
			CompanyName: result.Company.Name,
			Location:    location,
			URL:         result.Refs.LandingPage,
			PublishedAt: result.PublicationDate,
		})
	}
	return postings, nil
}

// EnrichContact is one contact returned by the contact-enrichment provider.
type EnrichContact struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Email string `json:"email"`
}

// ParseEnrichResponse decodes the enrichment provider's contact listing.
func ParseEnrichResponse(body []byte) ([]EnrichContact, error) {
	var payload struct {
		Contacts []EnrichContact `json:"contacts"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	return payload.Contacts, nil
}

// ParsePhoneResponse decodes the phone provider's response for a single lead.
func ParsePhoneResponse(body []byte) (string, error) {
	var payload struct {
		Phone string `json:"phone"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", err
	}
	return payload.Phone, nil
}
