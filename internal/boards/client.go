// Package boards talks to public job-board JSON APIs and normalizes their
// postings into companies worth prospecting.
package boards

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DefaultUserAgent is sent with all job-board requests so the boards can
// identify the scraper and apply robots.txt rules or rate limits.
const DefaultUserAgent = "LeadHound/1.0 (+https://github.com/leadhound)"

// Supported board identifiers.
const (
	BoardRemotive = "remotive"
	BoardMuse     = "themuse"
)

// SearchURL builds the posting-search URL for a board and query.
func SearchURL(board, query string) (string, error) {
	switch board {
	case BoardRemotive:
		return "https://remotive.com/api/remote-jobs?search=" + url.QueryEscape(query), nil
	case BoardMuse:
		return "https://www.themuse.com/api/public/jobs?page=1&descending=true&q=" + url.QueryEscape(query), nil
	}
	return "", fmt.Errorf("unknown board %q", board)
}

// BaseURL returns the board's origin, used for robots.txt fetches.
func BaseURL(board string) (string, error) {
	switch board {
	case BoardRemotive:
		return "https://remotive.com", nil
	case BoardMuse:
		return "https://www.themuse.com", nil
	}
	return "", fmt.Errorf("unknown board %q", board)
}

// FetchJSON retrieves the raw JSON for a board URL using http.DefaultClient.
func FetchJSON(ctx context.Context, url string) ([]byte, error) {
	return FetchJSONWithClient(ctx, http.DefaultClient, url)
}

// FetchJSONWithClient retrieves the raw JSON for a board URL using the given
// HTTP client (e.g. one configured with a proxy). Sets DefaultUserAgent.
func FetchJSONWithClient(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", DefaultUserAgent)
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// CompanySlug normalizes a company name into a stable dedupe key: lowercase,
// alphanumerics kept, word separators collapsed to single dashes.
func CompanySlug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
