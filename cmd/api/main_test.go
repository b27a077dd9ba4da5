package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	"leadhound/internal/models"
	"leadhound/mocks"
)

type testServer struct {
	srv    *server
	store  *mocks.MockStore
	jobs   *mocks.MockScrapeJobProducer
	phones *mocks.MockPhoneJobProducer
}

func newTestServer(t *testing.T) testServer {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	st := mocks.NewMockStore(ctrl)
	jobs := mocks.NewMockScrapeJobProducer(ctrl)
	phones := mocks.NewMockPhoneJobProducer(ctrl)

	return testServer{
		srv:    newServer(jobs, phones, st, 15*time.Minute),
		store:  st,
		jobs:   jobs,
		phones: phones,
	}
}

func testICP() models.ICP {
	return models.ICP{
		ID:   "icp-1",
		Name: "sre-leads",
		Scrapers: []models.ScraperSlot{
			{Board: "remotive", Query: "site reliability engineer"},
			{Board: "muse", Query: "devops"},
		},
		CreatedAt: time.Unix(0, 0).UTC(),
	}
}

func TestCreateICP(t *testing.T) {
	ts := newTestServer(t)
	ts.store.EXPECT().SaveICP(gomock.Any(), gomock.Any()).Return(nil)

	body := `{"name":"sre-leads","scrapers":[{"board":"remotive","query":"sre"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/icps", strings.NewReader(body))
	rec := httptest.NewRecorder()
	ts.srv.handleICPs(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rec.Code)
	}

	var created models.ICP
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected icp id to be set")
	}
	if created.Name != "sre-leads" {
		t.Fatalf("unexpected name: %s", created.Name)
	}
}

func TestCreateICPMissingScrapers(t *testing.T) {
	ts := newTestServer(t)
	ts.store.EXPECT().SaveICP(gomock.Any(), gomock.Any()).Times(0)

	req := httptest.NewRequest(http.MethodPost, "/api/icps", strings.NewReader(`{"name":"empty"}`))
	rec := httptest.NewRecorder()
	ts.srv.handleICPs(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestStartRunsQueuesOnePerSlot(t *testing.T) {
	ts := newTestServer(t)
	icp := testICP()

	ts.store.EXPECT().GetICP(gomock.Any(), icp.ID).Return(icp, true, nil)
	ts.store.EXPECT().SaveRun(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	ts.store.EXPECT().
		BumpSummary(gomock.Any(), icp.ID, map[string]int64{"runs_started": 2}).
		Return(nil)

	var jobs []models.ScrapeJob
	ts.jobs.EXPECT().
		WriteScrapeJob(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, job models.ScrapeJob) error {
			jobs = append(jobs, job)
			return nil
		}).
		Times(2)

	req := httptest.NewRequest(http.MethodPost, "/api/searches/icp-1/run", nil)
	rec := httptest.NewRecorder()
	ts.srv.handleSearches(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected status %d, got %d", http.StatusAccepted, rec.Code)
	}

	var runs []models.ScrapeRun
	if err := json.NewDecoder(rec.Body).Decode(&runs); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	for i, run := range runs {
		if run.Status != models.RunQueued {
			t.Fatalf("run %d: unexpected status %s", i, run.Status)
		}
		if run.ScraperIndex == nil || *run.ScraperIndex != i {
			t.Fatalf("run %d: unexpected scraper index %v", i, run.ScraperIndex)
		}
		if jobs[i].RunID != run.ID {
			t.Fatalf("job %d targets run %s, want %s", i, jobs[i].RunID, run.ID)
		}
	}
	if jobs[0].Board != "remotive" || jobs[1].Board != "muse" {
		t.Fatalf("unexpected job boards: %s, %s", jobs[0].Board, jobs[1].Board)
	}
}

func TestStartRunsSingleScraperSlot(t *testing.T) {
	ts := newTestServer(t)
	icp := testICP()

	ts.store.EXPECT().GetICP(gomock.Any(), icp.ID).Return(icp, true, nil)
	ts.store.EXPECT().SaveRun(gomock.Any(), gomock.Any()).Return(nil)
	ts.store.EXPECT().
		BumpSummary(gomock.Any(), icp.ID, map[string]int64{"runs_started": 1}).
		Return(nil)

	var job models.ScrapeJob
	ts.jobs.EXPECT().
		WriteScrapeJob(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, j models.ScrapeJob) error {
			job = j
			return nil
		})

	req := httptest.NewRequest(http.MethodPost, "/api/searches/icp-1/run?scraper=1", nil)
	rec := httptest.NewRecorder()
	ts.srv.handleSearches(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected status %d, got %d", http.StatusAccepted, rec.Code)
	}
	var runs []models.ScrapeRun
	if err := json.NewDecoder(rec.Body).Decode(&runs); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].ScraperIndex == nil || *runs[0].ScraperIndex != 1 {
		t.Fatalf("unexpected scraper index %v", runs[0].ScraperIndex)
	}
	if job.Board != "muse" || job.ScraperIndex != 1 {
		t.Fatalf("unexpected job: board=%s index=%d", job.Board, job.ScraperIndex)
	}
}

func TestStartRunsBadScraperIndex(t *testing.T) {
	ts := newTestServer(t)
	ts.store.EXPECT().GetICP(gomock.Any(), "icp-1").Return(testICP(), true, nil)
	ts.jobs.EXPECT().WriteScrapeJob(gomock.Any(), gomock.Any()).Times(0)

	req := httptest.NewRequest(http.MethodPost, "/api/searches/icp-1/run?scraper=9", nil)
	rec := httptest.NewRecorder()
	ts.srv.handleSearches(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestStartRunsUnknownICP(t *testing.T) {
	ts := newTestServer(t)
	ts.store.EXPECT().GetICP(gomock.Any(), "nope").Return(models.ICP{}, false, nil)
	ts.jobs.EXPECT().WriteScrapeJob(gomock.Any(), gomock.Any()).Times(0)

	req := httptest.NewRequest(http.MethodPost, "/api/searches/nope/run", nil)
	rec := httptest.NewRecorder()
	ts.srv.handleSearches(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestListRuns(t *testing.T) {
	ts := newTestServer(t)
	ts.store.EXPECT().
		ListRuns(gomock.Any(), "icp-1").
		Return([]models.ScrapeRun{{ID: "run-1", Status: models.RunRunning}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/searches/icp-1/runs", nil)
	rec := httptest.NewRecorder()
	ts.srv.handleSearches(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var runs []models.ScrapeRun
	if err := json.NewDecoder(rec.Body).Decode(&runs); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run-1" {
		t.Fatalf("unexpected runs: %+v", runs)
	}
}

func TestCancelRun(t *testing.T) {
	ts := newTestServer(t)
	run := models.ScrapeRun{ID: "run-1", ICPID: "icp-1", Status: models.RunRunning}

	ts.store.EXPECT().GetRun(gomock.Any(), "icp-1", "run-1").Return(run, true, nil)
	ts.store.EXPECT().
		SaveRun(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, saved models.ScrapeRun) error {
			if saved.Status != models.RunCancelled {
				t.Fatalf("unexpected saved status: %s", saved.Status)
			}
			if saved.CompletedAt == nil {
				t.Fatal("expected completed_at to be set")
			}
			return nil
		})

	req := httptest.NewRequest(http.MethodDelete, "/api/searches/icp-1/runs/run-1", nil)
	rec := httptest.NewRecorder()
	ts.srv.handleSearches(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var got models.ScrapeRun
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Status != models.RunCancelled {
		t.Fatalf("unexpected status: %s", got.Status)
	}
}

func TestCancelRunAlreadyTerminal(t *testing.T) {
	ts := newTestServer(t)
	run := models.ScrapeRun{ID: "run-1", ICPID: "icp-1", Status: models.RunCompleted}

	ts.store.EXPECT().GetRun(gomock.Any(), "icp-1", "run-1").Return(run, true, nil)
	ts.store.EXPECT().SaveRun(gomock.Any(), gomock.Any()).Times(0)

	req := httptest.NewRequest(http.MethodDelete, "/api/searches/icp-1/runs/run-1", nil)
	rec := httptest.NewRecorder()
	ts.srv.handleSearches(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var got models.ScrapeRun
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Status != models.RunCompleted {
		t.Fatalf("expected terminal run untouched, got %s", got.Status)
	}
}

func TestCleanupRuns(t *testing.T) {
	ts := newTestServer(t)
	ts.store.EXPECT().CleanupStale(gomock.Any(), "icp-1", 15*time.Minute).Return(3, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/searches/icp-1/runs/cleanup", nil)
	rec := httptest.NewRecorder()
	ts.srv.handleSearches(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var got models.CleanupResult
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Cleaned != 3 {
		t.Fatalf("unexpected cleaned count: %d", got.Cleaned)
	}
}

func TestEnrichPhonesSkipsLeadsWithPhones(t *testing.T) {
	ts := newTestServer(t)
	leads := []models.Lead{
		{ID: "lead-1", ICPID: "icp-1"},
		{ID: "lead-2", ICPID: "icp-1", Phone: "+1 555 0100"},
		{ID: "lead-3", ICPID: "icp-1"},
	}

	ts.store.EXPECT().Leads(gomock.Any(), "icp-1", 1000).Return(leads, nil)
	ts.store.EXPECT().AddPendingPhones(gomock.Any(), 2).Return(2, nil)

	var queued []string
	ts.phones.EXPECT().
		WritePhoneJob(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, job models.PhoneJob) error {
			queued = append(queued, job.LeadID)
			return nil
		}).
		Times(2)

	req := httptest.NewRequest(http.MethodPost, "/api/leads/enrich-phones?icp=icp-1", nil)
	rec := httptest.NewRecorder()
	ts.srv.handleEnrichPhones(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected status %d, got %d", http.StatusAccepted, rec.Code)
	}

	var got models.EnrichResult
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Queued != 2 {
		t.Fatalf("unexpected queued count: %d", got.Queued)
	}
	if len(queued) != 2 || queued[0] != "lead-1" || queued[1] != "lead-3" {
		t.Fatalf("unexpected queued leads: %v", queued)
	}
}

func TestEnrichPhonesNoPending(t *testing.T) {
	ts := newTestServer(t)
	ts.store.EXPECT().Leads(gomock.Any(), "icp-1", 1000).Return(nil, nil)
	ts.store.EXPECT().AddPendingPhones(gomock.Any(), gomock.Any()).Times(0)
	ts.phones.EXPECT().WritePhoneJob(gomock.Any(), gomock.Any()).Times(0)

	req := httptest.NewRequest(http.MethodPost, "/api/leads/enrich-phones?icp=icp-1", nil)
	rec := httptest.NewRecorder()
	ts.srv.handleEnrichPhones(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected status %d, got %d", http.StatusAccepted, rec.Code)
	}
}

func TestPhoneStatus(t *testing.T) {
	ts := newTestServer(t)
	ts.store.EXPECT().PendingPhones(gomock.Any()).Return(5, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/debug/phone-status", nil)
	rec := httptest.NewRecorder()
	ts.srv.handlePhoneStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var got models.PhoneStatus
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Summary.Pending != 5 {
		t.Fatalf("unexpected pending count: %d", got.Summary.Pending)
	}
}

func TestICPSummary(t *testing.T) {
	ts := newTestServer(t)
	icp := testICP()

	ts.store.EXPECT().GetICP(gomock.Any(), icp.ID).Return(icp, true, nil)
	ts.store.EXPECT().
		Summary(gomock.Any(), icp.ID).
		Return(models.ICPSummary{ICPID: icp.ID, JobsFound: 42, LeadsCreated: 7}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/icps/icp-1/summary", nil)
	rec := httptest.NewRecorder()
	ts.srv.handleICP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var got models.ICPSummary
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.JobsFound != 42 || got.LeadsCreated != 7 {
		t.Fatalf("unexpected summary: %+v", got)
	}
}

func TestSearchesUnknownPath(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/searches/icp-1/bogus", nil)
	rec := httptest.NewRecorder()
	ts.srv.handleSearches(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestHandleMetrics(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	ts.srv.handleMetrics(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "leadhound_api_up 1") {
		t.Fatalf("unexpected metrics body: %s", rec.Body.String())
	}
}
