package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/segmentio/kafka-go"

	"leadhound/internal/models"
	"leadhound/mocks"
)

const remotivePayload = `{"jobs":[
	{"title":"SRE","company_name":"Acme Corp","candidate_required_location":"Remote","url":"https://remotive.com/jobs/1"},
	{"title":"Platform Engineer","company_name":"Acme Corp","candidate_required_location":"Remote","url":"https://remotive.com/jobs/2"},
	{"title":"DevOps Lead","company_name":"Globex","candidate_required_location":"EU","url":"https://remotive.com/jobs/3"}
]}`

// newTestWorker builds a worker wired to a commit channel and wait group.
// searchURL points every board at server so tests never touch real boards.
func newTestWorker(t *testing.T, st *mocks.MockStore, companies, leads, dlq resultWriter, serverURL, enrichBase string, retryMax int) (*worker, chan kafka.Message, *sync.WaitGroup) {
	t.Helper()
	commitCh := make(chan kafka.Message, 10)
	var wg sync.WaitGroup
	client := &http.Client{Timeout: 10 * time.Second}
	w := newWorker(nil, st, companies, leads, dlq, retryMax, 0, 0, client, enrichBase,
		1, 5*time.Minute, 90*time.Second, commitCh, &wg, nil)
	w.searchURL = func(board, query string) (string, error) {
		return serverURL + "/search?board=" + board, nil
	}
	return w, commitCh, &wg
}

func newMockStore(t *testing.T) *mocks.MockStore {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	return mocks.NewMockStore(ctrl)
}

func newMockWriter(t *testing.T) *mocks.MockMessageWriter {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	return mocks.NewMockMessageWriter(ctrl)
}

func TestSelectProxyFromPoolEmpty(t *testing.T) {
	if got := selectProxyFromPool("", "worker-0"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	if got := selectProxyFromPool("  ,  ", "worker-0"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestSelectProxyFromPoolDeterministic(t *testing.T) {
	pool := "http://p0:8080,http://p1:8080,http://p2:8080"
	got := selectProxyFromPool(pool, "leadhound-worker-0")
	if got == "" {
		t.Fatal("expected one of pool, got empty")
	}
	if got2 := selectProxyFromPool(pool, "leadhound-worker-0"); got != got2 {
		t.Fatalf("deterministic: expected %q, got %q", got, got2)
	}
}

func TestBuildHTTPClientNoProxy(t *testing.T) {
	os.Unsetenv("PROXY_URL")
	os.Unsetenv("PROXY_POOL")
	os.Unsetenv("HOSTNAME")
	client := buildHTTPClient()
	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport for timeouts, got %T", client.Transport)
	}
	if transport.Proxy != nil {
		t.Fatal("expected no proxy when no proxy env")
	}
	if client.Timeout != 30*time.Second {
		t.Fatalf("expected total timeout 30s, got %v", client.Timeout)
	}
}

func TestExecuteRunDedupesWithinRun(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(remotivePayload))
	}))
	defer server.Close()

	st := newMockStore(t)
	companies := newMockWriter(t)

	// Acme Corp appears twice; the in-run dedupe must check it once.
	st.EXPECT().SeenCompany(gomock.Any(), "icp-1", "acme-corp").Return(true, nil)
	st.EXPECT().SeenCompany(gomock.Any(), "icp-1", "globex").Return(true, nil)
	st.EXPECT().AddCompany(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	var published []models.CompanyResult
	companies.EXPECT().
		WriteMessages(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msgs ...kafka.Message) error {
			var result models.CompanyResult
			if err := json.Unmarshal(msgs[0].Value, &result); err != nil {
				t.Fatalf("failed to decode company result: %v", err)
			}
			published = append(published, result)
			return nil
		}).
		Times(2)

	w, _, _ := newTestWorker(t, st, companies, nil, nil, server.URL, "", 0)
	job := models.ScrapeJob{RunID: "run-1", ICPID: "icp-1", Board: "remotive", Query: "sre"}

	outcome, err := w.executeRun(context.Background(), job)
	if err != nil {
		t.Fatalf("executeRun: %v", err)
	}
	if outcome.jobsFound != 3 {
		t.Fatalf("expected 3 jobs found, got %d", outcome.jobsFound)
	}
	if outcome.companies != 2 || outcome.newCompanies != 2 {
		t.Fatalf("expected 2 distinct new companies, got %d/%d", outcome.companies, outcome.newCompanies)
	}
	if published[0].Company.Slug != "acme-corp" || published[1].Company.Slug != "globex" {
		t.Fatalf("unexpected published companies: %+v", published)
	}
	if published[0].RunID != "run-1" {
		t.Fatalf("unexpected run id on result: %s", published[0].RunID)
	}
}

func TestExecuteRunSkipsKnownCompanies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(remotivePayload))
	}))
	defer server.Close()

	st := newMockStore(t)
	companies := newMockWriter(t)

	st.EXPECT().SeenCompany(gomock.Any(), "icp-1", gomock.Any()).Return(false, nil).Times(2)
	st.EXPECT().AddCompany(gomock.Any(), gomock.Any()).Times(0)
	companies.EXPECT().WriteMessages(gomock.Any(), gomock.Any()).Times(0)

	w, _, _ := newTestWorker(t, st, companies, nil, nil, server.URL, "", 0)
	job := models.ScrapeJob{RunID: "run-1", ICPID: "icp-1", Board: "remotive", Query: "sre"}

	outcome, err := w.executeRun(context.Background(), job)
	if err != nil {
		t.Fatalf("executeRun: %v", err)
	}
	if outcome.companies != 2 || outcome.newCompanies != 0 {
		t.Fatalf("expected 2 seen companies, 0 new, got %d/%d", outcome.companies, outcome.newCompanies)
	}
}

func TestCreateLeadsFromEnrichment(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jobs":[{"title":"SRE","company_name":"Acme Corp","url":"https://remotive.com/jobs/1"}]}`))
	})
	mux.HandleFunc("/contacts", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("company"); got != "acme-corp" {
			t.Errorf("unexpected company query: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"contacts":[
			{"name":"Ada Smith","title":"VP Engineering","email":"ada@acme.example"},
			{"name":"Bob Jones","title":"Head of Platform","email":"bob@acme.example"}
		]}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	st := newMockStore(t)
	companies := newMockWriter(t)
	leads := newMockWriter(t)

	st.EXPECT().SeenCompany(gomock.Any(), "icp-1", "acme-corp").Return(true, nil)
	st.EXPECT().AddCompany(gomock.Any(), gomock.Any()).Return(nil)
	companies.EXPECT().WriteMessages(gomock.Any(), gomock.Any()).Return(nil)

	var saved []models.Lead
	st.EXPECT().
		SaveLead(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, lead models.Lead) error {
			saved = append(saved, lead)
			return nil
		}).
		Times(2)
	leads.EXPECT().WriteMessages(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	w, _, _ := newTestWorker(t, st, companies, leads, nil, server.URL, server.URL, 0)
	job := models.ScrapeJob{RunID: "run-1", ICPID: "icp-1", Board: "remotive", Query: "sre"}

	outcome, err := w.executeRun(context.Background(), job)
	if err != nil {
		t.Fatalf("executeRun: %v", err)
	}
	if outcome.leadsCreated != 2 {
		t.Fatalf("expected 2 leads created, got %d", outcome.leadsCreated)
	}
	if saved[0].Name != "Ada Smith" || saved[0].CompanySlug != "acme-corp" || saved[0].ID == "" {
		t.Fatalf("unexpected saved lead: %+v", saved[0])
	}
}

func TestFetchPostingsWithRetrySucceedsAfterRetry(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "temporary", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(remotivePayload))
	}))
	defer server.Close()

	w, _, _ := newTestWorker(t, nil, nil, nil, nil, server.URL, "", 2)
	job := models.ScrapeJob{RunID: "run-1", ICPID: "icp-1", Board: "remotive", Query: "sre"}

	postings, err := w.fetchPostingsWithRetry(context.Background(), job)
	if err != nil {
		t.Fatalf("expected nil error after retries, got %v", err)
	}
	if len(postings) != 3 {
		t.Fatalf("expected 3 postings, got %d", len(postings))
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected server called 3 times (initial + 2 retries), got %d", got)
	}
}

func TestFetchPostingsWithRetryStopsAfterMax(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	w, _, _ := newTestWorker(t, nil, nil, nil, nil, server.URL, "", 2)
	job := models.ScrapeJob{RunID: "run-1", ICPID: "icp-1", Board: "remotive", Query: "sre"}
	if _, err := w.fetchPostingsWithRetry(context.Background(), job); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestDispatchSkipsTerminalRun(t *testing.T) {
	st := newMockStore(t)
	run := models.ScrapeRun{ID: "run-1", ICPID: "icp-1", Status: models.RunCancelled}
	st.EXPECT().GetRun(gomock.Any(), "icp-1", "run-1").Return(run, true, nil)
	st.EXPECT().SaveRun(gomock.Any(), gomock.Any()).Times(0)

	w, commitCh, _ := newTestWorker(t, st, nil, nil, nil, "http://unused", "", 0)
	payload, _ := json.Marshal(models.ScrapeJob{RunID: "run-1", ICPID: "icp-1", Board: "remotive"})

	if err := w.dispatchMessage(context.Background(), kafka.Message{Value: payload}); err != nil {
		t.Fatalf("dispatchMessage: %v", err)
	}
	select {
	case <-commitCh:
	default:
		t.Fatal("expected skipped message to be committed")
	}
}

func TestDispatchMarksRunRunning(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jobs":[]}`))
	}))
	defer server.Close()

	st := newMockStore(t)
	queued := models.ScrapeRun{ID: "run-1", ICPID: "icp-1", Status: models.RunQueued}

	st.EXPECT().GetRun(gomock.Any(), "icp-1", "run-1").Return(queued, true, nil)
	st.EXPECT().
		SaveRun(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, run models.ScrapeRun) error {
			if run.Status != models.RunRunning || run.StartedAt == nil {
				t.Fatalf("expected running run with start time, got %+v", run)
			}
			return nil
		})

	// Finalize phase reloads the run and completes it with zero counts.
	running := queued
	running.Status = models.RunRunning
	st.EXPECT().GetRun(gomock.Any(), "icp-1", "run-1").Return(running, true, nil)
	st.EXPECT().
		SaveRun(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, run models.ScrapeRun) error {
			if run.Status != models.RunCompleted {
				t.Fatalf("expected completed run, got %s", run.Status)
			}
			if run.JobsFound == nil || *run.JobsFound != 0 {
				t.Fatalf("expected zero jobs found, got %v", run.JobsFound)
			}
			if run.CompletedAt == nil || run.Duration == nil {
				t.Fatal("expected completed_at and duration to be set")
			}
			return nil
		})
	st.EXPECT().BumpSummary(gomock.Any(), "icp-1", gomock.Any()).Return(nil)

	w, commitCh, wg := newTestWorker(t, st, nil, nil, nil, server.URL, "", 0)
	payload, _ := json.Marshal(models.ScrapeJob{RunID: "run-1", ICPID: "icp-1", Board: "remotive", Query: "sre"})

	if err := w.dispatchMessage(context.Background(), kafka.Message{Value: payload}); err != nil {
		t.Fatalf("dispatchMessage: %v", err)
	}
	wg.Wait()
	select {
	case <-commitCh:
	case <-time.After(time.Second):
		t.Fatal("expected processed message on commit channel")
	}
}

func TestFinalizeRunFailure(t *testing.T) {
	st := newMockStore(t)
	running := models.ScrapeRun{ID: "run-1", ICPID: "icp-1", Status: models.RunRunning}

	st.EXPECT().GetRun(gomock.Any(), "icp-1", "run-1").Return(running, true, nil)
	st.EXPECT().
		SaveRun(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, run models.ScrapeRun) error {
			if run.Status != models.RunFailed {
				t.Fatalf("expected failed status, got %s", run.Status)
			}
			if run.Error == "" {
				t.Fatal("expected error message on failed run")
			}
			if run.JobsFound != nil {
				t.Fatal("failed run must not carry result counts")
			}
			return nil
		})
	st.EXPECT().BumpSummary(gomock.Any(), "icp-1", map[string]int64{"runs_finished": 1}).Return(nil)

	w, _, _ := newTestWorker(t, st, nil, nil, nil, "http://unused", "", 0)
	job := models.ScrapeJob{RunID: "run-1", ICPID: "icp-1", Board: "remotive"}
	if err := w.finalizeRun(context.Background(), job, scrapeOutcome{}, 3*time.Second, context.DeadlineExceeded); err != nil {
		t.Fatalf("finalizeRun: %v", err)
	}
}

func TestFinalizeRunLeavesTerminalUntouched(t *testing.T) {
	st := newMockStore(t)
	cancelled := models.ScrapeRun{ID: "run-1", ICPID: "icp-1", Status: models.RunCancelled}

	st.EXPECT().GetRun(gomock.Any(), "icp-1", "run-1").Return(cancelled, true, nil)
	st.EXPECT().SaveRun(gomock.Any(), gomock.Any()).Times(0)
	st.EXPECT().BumpSummary(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	w, _, _ := newTestWorker(t, st, nil, nil, nil, "http://unused", "", 0)
	job := models.ScrapeJob{RunID: "run-1", ICPID: "icp-1"}
	if err := w.finalizeRun(context.Background(), job, scrapeOutcome{jobsFound: 5}, time.Second, nil); err != nil {
		t.Fatalf("finalizeRun: %v", err)
	}
}

func TestExecuteRunDLQAfterExhaustedRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	st := newMockStore(t)
	dlq := newMockWriter(t)

	queued := models.ScrapeRun{ID: "run-1", ICPID: "icp-1", Status: models.RunQueued}
	st.EXPECT().GetRun(gomock.Any(), "icp-1", "run-1").Return(queued, true, nil)
	st.EXPECT().SaveRun(gomock.Any(), gomock.Any()).Return(nil)

	var failure models.ScrapeFailure
	dlq.EXPECT().
		WriteMessages(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msgs ...kafka.Message) error {
			if err := json.Unmarshal(msgs[0].Value, &failure); err != nil {
				t.Fatalf("failed to decode failure: %v", err)
			}
			return nil
		})

	running := queued
	running.Status = models.RunRunning
	st.EXPECT().GetRun(gomock.Any(), "icp-1", "run-1").Return(running, true, nil)
	st.EXPECT().
		SaveRun(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, run models.ScrapeRun) error {
			if run.Status != models.RunFailed {
				t.Fatalf("expected failed run, got %s", run.Status)
			}
			return nil
		})
	st.EXPECT().BumpSummary(gomock.Any(), "icp-1", map[string]int64{"runs_finished": 1}).Return(nil)

	w, commitCh, wg := newTestWorker(t, st, nil, nil, dlq, server.URL, "", 1)
	payload, _ := json.Marshal(models.ScrapeJob{RunID: "run-1", ICPID: "icp-1", Board: "remotive", Query: "sre"})

	if err := w.dispatchMessage(context.Background(), kafka.Message{Value: payload}); err != nil {
		t.Fatalf("dispatchMessage: %v", err)
	}
	wg.Wait()
	select {
	case <-commitCh:
	case <-time.After(time.Second):
		t.Fatal("expected failed message on commit channel")
	}
	if failure.RunID != "run-1" || failure.Board != "remotive" || failure.Error == "" {
		t.Fatalf("unexpected failure payload: %+v", failure)
	}
}
