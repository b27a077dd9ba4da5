// Package client is a thin HTTP client for the leadhound API. The prospect
// CLI uses it to start runs, poll their status, and refresh result views.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"leadhound/internal/models"
)

// Client talks to one leadhound API server.
type Client struct {
	base *url.URL
	http *http.Client
}

// New creates a client for the given API base URL, e.g. http://localhost:8080.
func New(apiBase string) (*Client, error) {
	return NewWithHTTPClient(apiBase, &http.Client{Timeout: 30 * time.Second})
}

// NewWithHTTPClient creates a client with a custom HTTP client (tests).
func NewWithHTTPClient(apiBase string, hc *http.Client) (*Client, error) {
	base, err := url.Parse(apiBase)
	if err != nil {
		return nil, fmt.Errorf("parse api base: %w", err)
	}
	return &Client{base: base, http: hc}, nil
}

// CreateICP registers a new Ideal Customer Profile and returns the stored
// record with its server-assigned ID.
func (c *Client) CreateICP(ctx context.Context, icp models.ICP) (models.ICP, error) {
	var out models.ICP
	err := c.do(ctx, http.MethodPost, "/api/icps", nil, icp, &out)
	return out, err
}

// ICPSummary fetches the aggregate result counters for an ICP.
func (c *Client) ICPSummary(ctx context.Context, icpID string) (models.ICPSummary, error) {
	var out models.ICPSummary
	err := c.do(ctx, http.MethodGet, "/api/icps/"+icpID+"/summary", nil, nil, &out)
	return out, err
}

// StartRuns kicks off one scraper run per configured scraper slot and returns
// the queued run records.
func (c *Client) StartRuns(ctx context.Context, icpID string) ([]models.ScrapeRun, error) {
	var out []models.ScrapeRun
	err := c.do(ctx, http.MethodPost, "/api/searches/"+icpID+"/run", nil, nil, &out)
	return out, err
}

// ListRuns returns all known runs for an ICP, newest first.
func (c *Client) ListRuns(ctx context.Context, icpID string) ([]models.ScrapeRun, error) {
	var out []models.ScrapeRun
	err := c.do(ctx, http.MethodGet, "/api/searches/"+icpID+"/runs", nil, nil, &out)
	return out, err
}

// CancelRun marks a queued or running run cancelled and returns the updated
// record.
func (c *Client) CancelRun(ctx context.Context, icpID, runID string) (models.ScrapeRun, error) {
	var out models.ScrapeRun
	err := c.do(ctx, http.MethodDelete, "/api/searches/"+icpID+"/runs/"+runID, nil, nil, &out)
	return out, err
}

// CleanupRuns marks stale non-terminal runs of an ICP failed.
func (c *Client) CleanupRuns(ctx context.Context, icpID string) (models.CleanupResult, error) {
	var out models.CleanupResult
	err := c.do(ctx, http.MethodPost, "/api/searches/"+icpID+"/runs/cleanup", nil, nil, &out)
	return out, err
}

// Companies lists companies discovered for an ICP, newest first.
func (c *Client) Companies(ctx context.Context, icpID string) ([]models.Company, error) {
	var out []models.Company
	err := c.do(ctx, http.MethodGet, "/api/companies", url.Values{"icp": {icpID}}, nil, &out)
	return out, err
}

// Leads lists leads created for an ICP, newest first.
func (c *Client) Leads(ctx context.Context, icpID string) ([]models.Lead, error) {
	var out []models.Lead
	err := c.do(ctx, http.MethodGet, "/api/leads", url.Values{"icp": {icpID}}, nil, &out)
	return out, err
}

// EnrichPhones queues phone enrichment for every phoneless lead of an ICP and
// reports how many jobs were queued.
func (c *Client) EnrichPhones(ctx context.Context, icpID string) (models.EnrichResult, error) {
	var out models.EnrichResult
	err := c.do(ctx, http.MethodPost, "/api/leads/enrich-phones", url.Values{"icp": {icpID}}, nil, &out)
	return out, err
}

// PhoneStatus reports the current size of the phone-enrichment queue.
func (c *Client) PhoneStatus(ctx context.Context) (models.PhoneStatus, error) {
	var out models.PhoneStatus
	err := c.do(ctx, http.MethodGet, "/api/debug/phone-status", nil, nil, &out)
	return out, err
}

// do performs one request against the API and decodes the JSON response into
// out. A non-2xx status becomes an error carrying the response body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.base
	u.Path = path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
