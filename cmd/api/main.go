package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"leadhound/common"
	"leadhound/internal/kafka"
	"leadhound/internal/models"
	"leadhound/internal/store"
)

var (
	// Counters exposed on /metrics.
	apiRunsStarted     uint64
	apiPhoneJobsQueued uint64
)

type server struct {
	jobs       kafka.ScrapeJobProducer
	phones     kafka.PhoneJobProducer
	store      store.Store
	staleAfter time.Duration
}

func newServer(jobs kafka.ScrapeJobProducer, phones kafka.PhoneJobProducer, st store.Store, staleAfter time.Duration) *server {
	return &server{
		jobs:       jobs,
		phones:     phones,
		store:      st,
		staleAfter: staleAfter,
	}
}

func main() {
	broker := common.GetEnv("KAFKA_BROKER", "localhost:9092")
	scrapeTopic := common.GetEnv("KAFKA_SCRAPE_TOPIC", "leadhound.scrape.jobs")
	phoneTopic := common.GetEnv("KAFKA_PHONE_TOPIC", "leadhound.phone.jobs")
	redisAddr := common.GetEnv("REDIS_ADDR", "localhost:6379")
	staleAfter := common.ParseDuration(common.GetEnv("RUN_STALE_AFTER", "15m"), 15*time.Minute)

	jobs := kafka.NewProducer(broker, scrapeTopic)
	defer func() {
		if err := jobs.Close(); err != nil {
			log.Printf("failed to close scrape producer: %v", err)
		}
	}()

	phones := kafka.NewProducer(broker, phoneTopic)
	defer func() {
		if err := phones.Close(); err != nil {
			log.Printf("failed to close phone producer: %v", err)
		}
	}()

	st := store.NewRedisStore(redisAddr, "leadhound:", 24*time.Hour)
	defer func() {
		if err := st.Close(); err != nil {
			log.Printf("failed to close store: %v", err)
		}
	}()

	srv := newServer(jobs, phones, st, staleAfter)

	addr := ":8080"
	log.Printf("api listening on %s", addr)
	if err := http.ListenAndServe(addr, srv.routes()); err != nil {
		log.Fatal(err)
	}
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/icps", s.handleICPs)
	mux.HandleFunc("/api/icps/", s.handleICP)
	mux.HandleFunc("/api/searches/", s.handleSearches)
	mux.HandleFunc("/api/companies", s.handleCompanies)
	mux.HandleFunc("/api/leads", s.handleLeads)
	mux.HandleFunc("/api/leads/enrich-phones", s.handleEnrichPhones)
	mux.HandleFunc("/api/debug/phone-status", s.handlePhoneStatus)
	mux.HandleFunc("/metrics", s.handleMetrics)
	return mux
}

// handleICPs creates an Ideal Customer Profile.
//
// Method: POST
// Path:   /api/icps
// Example:
//
//	curl -X POST http://localhost:8080/api/icps -d '{"name":"sre-leads","scrapers":[{"board":"remotive","query":"sre"}]}'
func (s *server) handleICPs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var icp models.ICP
	if err := json.NewDecoder(r.Body).Decode(&icp); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(icp.Name) == "" {
		http.Error(w, "missing name", http.StatusBadRequest)
		return
	}
	if len(icp.Scrapers) == 0 {
		http.Error(w, "missing scrapers", http.StatusBadRequest)
		return
	}
	for _, slot := range icp.Scrapers {
		if slot.Board == "" || strings.TrimSpace(slot.Query) == "" {
			http.Error(w, "scraper needs board and query", http.StatusBadRequest)
			return
		}
	}

	icp.ID = uuid.NewString()
	icp.CreatedAt = time.Now().UTC()
	if err := s.store.SaveICP(r.Context(), icp); err != nil {
		http.Error(w, "failed to persist icp", http.StatusBadGateway)
		return
	}
	writeJSON(w, icp, http.StatusCreated)
}

// handleICP serves per-ICP subresources, currently only the summary.
//
// Method: GET
// Path:   /api/icps/{id}/summary
func (s *server) handleICP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/icps/"), "/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "summary" || parts[0] == "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	icpID := parts[0]
	if _, ok, err := s.store.GetICP(r.Context(), icpID); err != nil {
		http.Error(w, "failed to load icp", http.StatusBadGateway)
		return
	} else if !ok {
		http.Error(w, "icp not found", http.StatusNotFound)
		return
	}

	summary, err := s.store.Summary(r.Context(), icpID)
	if err != nil {
		http.Error(w, "failed to load summary", http.StatusBadGateway)
		return
	}
	writeJSON(w, summary, http.StatusOK)
}

// handleSearches routes run operations for one ICP:
//
//	POST   /api/searches/{id}/run           queue one run per scraper slot
//	GET    /api/searches/{id}/runs          list runs, newest first
//	POST   /api/searches/{id}/runs/cleanup  mark stale runs failed
//	DELETE /api/searches/{id}/runs/{runID}  cancel a run
func (s *server) handleSearches(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/searches/"), "/")
	parts := strings.Split(rest, "/")
	if parts[0] == "" {
		http.Error(w, "missing icp id", http.StatusBadRequest)
		return
	}
	icpID := parts[0]

	switch {
	case len(parts) == 2 && parts[1] == "run" && r.Method == http.MethodPost:
		s.startRuns(w, r, icpID)
	case len(parts) == 2 && parts[1] == "runs" && r.Method == http.MethodGet:
		s.listRuns(w, r, icpID)
	case len(parts) == 3 && parts[1] == "runs" && parts[2] == "cleanup" && r.Method == http.MethodPost:
		s.cleanupRuns(w, r, icpID)
	case len(parts) == 3 && parts[1] == "runs" && r.Method == http.MethodDelete:
		s.cancelRun(w, r, icpID, parts[2])
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// startRuns queues one scraper run per slot configured on the ICP, or a
// single slot when ?scraper=N is given, and returns the queued run records.
// The worker picks the jobs up from Kafka, so the response never carries
// result counts.
func (s *server) startRuns(w http.ResponseWriter, r *http.Request, icpID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	icp, ok, err := s.store.GetICP(ctx, icpID)
	if err != nil {
		http.Error(w, "failed to load icp", http.StatusBadGateway)
		return
	}
	if !ok {
		http.Error(w, "icp not found", http.StatusNotFound)
		return
	}

	slots := make([]int, 0, len(icp.Scrapers))
	if v := r.URL.Query().Get("scraper"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n >= len(icp.Scrapers) {
			http.Error(w, "invalid scraper index", http.StatusBadRequest)
			return
		}
		slots = append(slots, n)
	} else {
		for i := range icp.Scrapers {
			slots = append(slots, i)
		}
	}

	createdAt := time.Now().UTC()
	runs := make([]models.ScrapeRun, 0, len(slots))
	for _, i := range slots {
		slot := icp.Scrapers[i]
		idx := i
		run := models.ScrapeRun{
			ID:           uuid.NewString(),
			ICPID:        icpID,
			ScraperIndex: &idx,
			Status:       models.RunQueued,
			CreatedAt:    createdAt,
		}
		job := models.ScrapeJob{
			RunID:        run.ID,
			ICPID:        icpID,
			ScraperIndex: i,
			Board:        slot.Board,
			Query:        slot.Query,
			CreatedAt:    createdAt,
		}

		if err := s.store.SaveRun(ctx, run); err != nil {
			http.Error(w, "failed to persist run", http.StatusBadGateway)
			return
		}
		if err := s.jobs.WriteScrapeJob(ctx, job); err != nil {
			http.Error(w, "failed to enqueue job", http.StatusBadGateway)
			return
		}
		runs = append(runs, run)
	}

	if err := s.store.BumpSummary(ctx, icpID, map[string]int64{"runs_started": int64(len(runs))}); err != nil {
		log.Printf("failed to bump summary: icp=%s err=%v", icpID, err)
	}
	atomic.AddUint64(&apiRunsStarted, uint64(len(runs)))
	log.Printf("queued runs: icp=%s count=%d", icpID, len(runs))
	writeJSON(w, runs, http.StatusAccepted)
}

func (s *server) listRuns(w http.ResponseWriter, r *http.Request, icpID string) {
	runs, err := s.store.ListRuns(r.Context(), icpID)
	if err != nil {
		http.Error(w, "failed to list runs", http.StatusBadGateway)
		return
	}
	writeJSON(w, runs, http.StatusOK)
}

// cancelRun marks a queued or running run cancelled. Terminal runs are left
// untouched and returned as-is so cancellation stays idempotent.
func (s *server) cancelRun(w http.ResponseWriter, r *http.Request, icpID, runID string) {
	run, ok, err := s.store.GetRun(r.Context(), icpID, runID)
	if err != nil {
		http.Error(w, "failed to load run", http.StatusBadGateway)
		return
	}
	if !ok {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}

	if !run.Status.Terminal() {
		now := time.Now().UTC()
		run.Status = models.RunCancelled
		run.CompletedAt = &now
		if err := s.store.SaveRun(r.Context(), run); err != nil {
			http.Error(w, "failed to persist run", http.StatusBadGateway)
			return
		}
		log.Printf("cancelled run: icp=%s run=%s", icpID, runID)
	}
	writeJSON(w, run, http.StatusOK)
}

func (s *server) cleanupRuns(w http.ResponseWriter, r *http.Request, icpID string) {
	cleaned, err := s.store.CleanupStale(r.Context(), icpID, s.staleAfter)
	if err != nil {
		http.Error(w, "failed to clean up runs", http.StatusBadGateway)
		return
	}
	if cleaned > 0 {
		log.Printf("cleaned up stale runs: icp=%s count=%d", icpID, cleaned)
	}
	writeJSON(w, models.CleanupResult{Cleaned: cleaned}, http.StatusOK)
}

// handleCompanies lists companies discovered for an ICP.
//
// Method: GET
// Path:   /api/companies?icp={id}
func (s *server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	icpID := strings.TrimSpace(r.URL.Query().Get("icp"))
	if icpID == "" {
		http.Error(w, "missing icp", http.StatusBadRequest)
		return
	}

	companies, err := s.store.Companies(r.Context(), icpID, 100)
	if err != nil {
		http.Error(w, "failed to list companies", http.StatusBadGateway)
		return
	}
	writeJSON(w, companies, http.StatusOK)
}

// handleLeads lists leads created for an ICP.
//
// Method: GET
// Path:   /api/leads?icp={id}
func (s *server) handleLeads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	icpID := strings.TrimSpace(r.URL.Query().Get("icp"))
	if icpID == "" {
		http.Error(w, "missing icp", http.StatusBadRequest)
		return
	}

	leads, err := s.store.Leads(r.Context(), icpID, 100)
	if err != nil {
		http.Error(w, "failed to list leads", http.StatusBadGateway)
		return
	}
	writeJSON(w, leads, http.StatusOK)
}

// handleEnrichPhones queues a phone-enrichment job for every lead of the ICP
// that has no phone number yet, bumps the pending counter by the number of
// jobs queued, and reports that number.
//
// Method: POST
// Path:   /api/leads/enrich-phones?icp={id}
func (s *server) handleEnrichPhones(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	icpID := strings.TrimSpace(r.URL.Query().Get("icp"))
	if icpID == "" {
		http.Error(w, "missing icp", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	leads, err := s.store.Leads(ctx, icpID, 1000)
	if err != nil {
		http.Error(w, "failed to list leads", http.StatusBadGateway)
		return
	}

	queued := 0
	createdAt := time.Now().UTC()
	for _, lead := range leads {
		if lead.Phone != "" {
			continue
		}
		job := models.PhoneJob{
			LeadID:    lead.ID,
			ICPID:     icpID,
			CreatedAt: createdAt,
		}
		if err := s.phones.WritePhoneJob(ctx, job); err != nil {
			http.Error(w, "failed to enqueue phone job", http.StatusBadGateway)
			return
		}
		queued++
	}

	if queued > 0 {
		if _, err := s.store.AddPendingPhones(ctx, queued); err != nil {
			http.Error(w, "failed to update pending counter", http.StatusBadGateway)
			return
		}
	}
	atomic.AddUint64(&apiPhoneJobsQueued, uint64(queued))
	log.Printf("queued phone enrichment: icp=%s count=%d", icpID, queued)
	writeJSON(w, models.EnrichResult{Queued: queued}, http.StatusAccepted)
}

// handlePhoneStatus reports the phone-enrichment queue depth.
//
// Method: GET
// Path:   /api/debug/phone-status
func (s *server) handlePhoneStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pending, err := s.store.PendingPhones(r.Context())
	if err != nil {
		http.Error(w, "failed to load phone status", http.StatusBadGateway)
		return
	}
	writeJSON(w, models.PhoneStatus{Summary: models.PhoneStatusSummary{Pending: pending}}, http.StatusOK)
}

// handleMetrics exposes a minimal Prometheus-compatible endpoint.
func (s *server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.WriteHeader(http.StatusOK)
	body := fmt.Sprintf(
		"leadhound_api_up 1\n"+
			"leadhound_api_runs_started_total %d\n"+
			"leadhound_api_phone_jobs_queued_total %d\n",
		atomic.LoadUint64(&apiRunsStarted),
		atomic.LoadUint64(&apiPhoneJobsQueued),
	)
	_, _ = w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
