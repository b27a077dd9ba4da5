package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"leadhound/internal/client"
	"leadhound/internal/models"
)

func newTestClient(t *testing.T, handler http.Handler) *client.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := client.NewWithHTTPClient(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}
	return c
}

func TestStartRuns(t *testing.T) {
	runs := []models.ScrapeRun{
		{ID: "run-1", ICPID: "icp-1", Status: models.RunQueued, CreatedAt: time.Unix(0, 0).UTC()},
		{ID: "run-2", ICPID: "icp-1", Status: models.RunQueued, CreatedAt: time.Unix(0, 0).UTC()},
	}

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.URL.Path != "/api/searches/icp-1/run" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(runs)
	}))

	got, err := c.StartRuns(context.Background(), "icp-1")
	if err != nil {
		t.Fatalf("StartRuns: %v", err)
	}
	if len(got) != 2 || got[0].ID != "run-1" || got[1].Status != models.RunQueued {
		t.Fatalf("unexpected runs: %+v", got)
	}
}

func TestListRunsPassesICP(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/searches/icp-7/runs" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode([]models.ScrapeRun{{ID: "run-9", Status: models.RunRunning}})
	}))

	got, err := c.ListRuns(context.Background(), "icp-7")
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(got) != 1 || got[0].ID != "run-9" {
		t.Fatalf("unexpected runs: %+v", got)
	}
}

func TestCancelRunUsesDelete(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.URL.Path != "/api/searches/icp-1/runs/run-3" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(models.ScrapeRun{ID: "run-3", Status: models.RunCancelled})
	}))

	got, err := c.CancelRun(context.Background(), "icp-1", "run-3")
	if err != nil {
		t.Fatalf("CancelRun: %v", err)
	}
	if got.Status != models.RunCancelled {
		t.Fatalf("unexpected status: %s", got.Status)
	}
}

func TestCompaniesQuery(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/companies" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("icp"); got != "icp-5" {
			t.Errorf("unexpected icp query: %q", got)
		}
		_ = json.NewEncoder(w).Encode([]models.Company{{Slug: "acme", Name: "Acme"}})
	}))

	got, err := c.Companies(context.Background(), "icp-5")
	if err != nil {
		t.Fatalf("Companies: %v", err)
	}
	if len(got) != 1 || got[0].Slug != "acme" {
		t.Fatalf("unexpected companies: %+v", got)
	}
}

func TestEnrichPhones(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/leads/enrich-phones" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(models.EnrichResult{Queued: 4})
	}))

	got, err := c.EnrichPhones(context.Background(), "icp-1")
	if err != nil {
		t.Fatalf("EnrichPhones: %v", err)
	}
	if got.Queued != 4 {
		t.Fatalf("unexpected queued count: %d", got.Queued)
	}
}

func TestPhoneStatus(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/debug/phone-status" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(models.PhoneStatus{Summary: models.PhoneStatusSummary{Pending: 3}})
	}))

	got, err := c.PhoneStatus(context.Background())
	if err != nil {
		t.Fatalf("PhoneStatus: %v", err)
	}
	if got.Summary.Pending != 3 {
		t.Fatalf("unexpected pending: %d", got.Summary.Pending)
	}
}

func TestErrorCarriesStatusAndBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "icp not found", http.StatusNotFound)
	}))

	_, err := c.ICPSummary(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if want := "status 404"; !strings.Contains(err.Error(), want) {
		t.Fatalf("error %q does not mention %q", err.Error(), want)
	}
	if want := "icp not found"; !strings.Contains(err.Error(), want) {
		t.Fatalf("error %q does not carry body %q", err.Error(), want)
	}
}
