package main

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"leadhound/common"
	"leadhound/internal/boards"
	"leadhound/internal/models"
	"leadhound/internal/pipeline"
	"leadhound/internal/store"
)

type messageReader = pipeline.MessageReader
type resultWriter = pipeline.MessageWriter

type worker struct {
	reader          messageReader
	store           store.Store
	companiesWriter resultWriter
	leadsWriter     resultWriter
	dlqWriter       resultWriter
	retryMax        int
	retryBase       time.Duration
	retryMaxDelay   time.Duration
	client          *http.Client
	// enrichBase is the contact-enrichment provider base URL; "" disables lead creation.
	enrichBase      string
	jobTimeout      time.Duration // per-run deadline so one stuck run can't hold a slot forever
	publishTimeout  time.Duration // max time for the DLQ publish so we never block the commit path
	commitCh        chan<- kafka.Message
	sem             chan struct{}
	wg              *sync.WaitGroup
	robots          map[string]*boards.RobotsRules // per board; nil entry = no check
	searchURL       func(board, query string) (string, error)
}

// selectProxyFromPool returns one URL from pool (comma-separated) by hashing hostname.
// Used so each pod picks a deterministic proxy for multi-egress. Empty pool or hostname yields "".
func selectProxyFromPool(pool, hostname string) string {
	parts := strings.Split(strings.TrimSpace(pool), ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	var valid []string
	for _, p := range parts {
		if p != "" {
			valid = append(valid, p)
		}
	}
	if len(valid) == 0 {
		return ""
	}
	if hostname == "" {
		hostname = "0"
	}
	h := fnv.New32a()
	h.Write([]byte(hostname))
	idx := int(h.Sum32()) % len(valid)
	if idx < 0 {
		idx = -idx
	}
	return valid[idx]
}

// metricsProxyURL is the proxy URL this worker uses (set at startup for /metrics proxy label).
var metricsProxyURL string

// Board HTTP timeouts so a single hung request doesn't hold a worker slot indefinitely.
const (
	boardConnectTimeout  = 10 * time.Second
	boardResponseTimeout = 25 * time.Second // time to first response header
	boardTotalTimeout    = 30 * time.Second // total request (connect + headers + body)
)

// buildHTTPClient returns an http.Client for board and provider fetches. If
// PROXY_URL is set, uses that proxy; if PROXY_POOL is set (comma-separated
// URLs), picks one by HOSTNAME (e.g. pod name) so replicas spread across
// proxies and stay under per-IP board rate limits.
func buildHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: boardConnectTimeout}).DialContext,
		ResponseHeaderTimeout: boardResponseTimeout,
	}
	proxyURL := common.GetEnv("PROXY_URL", "")
	pool := common.GetEnv("PROXY_POOL", "")
	if proxyURL == "" && pool != "" {
		hostname := os.Getenv("HOSTNAME")
		proxyURL = selectProxyFromPool(pool, hostname)
		if proxyURL != "" {
			log.Printf("worker proxy from pool: hostname=%s proxy=%s", hostname, proxyURL)
		}
	}
	metricsProxyURL = proxyURL
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			log.Printf("invalid PROXY_URL/PROXY_POOL: %v", err)
		} else {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Transport: transport,
		Timeout:   boardTotalTimeout,
	}
}

func newWorker(
	reader messageReader,
	st store.Store,
	companiesWriter resultWriter,
	leadsWriter resultWriter,
	dlqWriter resultWriter,
	retryMax int,
	retryBase time.Duration,
	retryMaxDelay time.Duration,
	client *http.Client,
	enrichBase string,
	concurrentJobs int,
	jobTimeout time.Duration,
	publishTimeout time.Duration,
	commitCh chan<- kafka.Message,
	wg *sync.WaitGroup,
	robots map[string]*boards.RobotsRules,
) *worker {
	if concurrentJobs < 1 {
		concurrentJobs = 1
	}
	if jobTimeout <= 0 {
		jobTimeout = 5 * time.Minute
	}
	if publishTimeout <= 0 {
		publishTimeout = 90 * time.Second
	}
	// Cap publish timeout so job context can still cancel the publish phase
	if publishTimeout >= jobTimeout {
		publishTimeout = jobTimeout - time.Minute
		if publishTimeout < 30*time.Second {
			publishTimeout = 30 * time.Second
		}
	}
	sem := make(chan struct{}, concurrentJobs)
	return &worker{
		reader:          reader,
		store:           st,
		companiesWriter: companiesWriter,
		leadsWriter:     leadsWriter,
		dlqWriter:       dlqWriter,
		retryMax:        retryMax,
		retryBase:       retryBase,
		retryMaxDelay:   retryMaxDelay,
		client:          client,
		enrichBase:      enrichBase,
		jobTimeout:      jobTimeout,
		publishTimeout:  publishTimeout,
		commitCh:        commitCh,
		sem:             sem,
		wg:              wg,
		robots:          robots,
		searchURL:       boards.SearchURL,
	}
}

func main() {
	broker := common.GetEnv("KAFKA_BROKER", "localhost:9092")
	scrapeTopic := common.GetEnv("KAFKA_SCRAPE_TOPIC", "leadhound.scrape.jobs")
	phoneTopic := common.GetEnv("KAFKA_PHONE_TOPIC", "leadhound.phone.jobs")
	groupID := common.GetEnv("KAFKA_GROUP_ID", "leadhound-worker")
	redisAddr := common.GetEnv("REDIS_ADDR", "localhost:6379")
	storeTTL := common.ParseDuration(common.GetEnv("STORE_TTL", "24h"), 24*time.Hour)
	companiesTopic := common.GetEnv("KAFKA_COMPANIES_TOPIC", "leadhound.companies")
	leadsTopic := common.GetEnv("KAFKA_LEADS_TOPIC", "leadhound.leads")
	dlqTopic := common.GetEnv("KAFKA_DLQ_TOPIC", "leadhound.scrape.dlq")
	retryMax := common.ParseInt(common.GetEnv("RETRY_MAX", "3"), 3)
	retryBase := common.ParseDuration(common.GetEnv("RETRY_BASE_DELAY", "200ms"), 200*time.Millisecond)
	retryMaxDelay := common.ParseDuration(common.GetEnv("RETRY_MAX_DELAY", "2s"), 2*time.Second)
	concurrentJobs := common.ParseInt(common.GetEnv("CONCURRENT_JOBS", "5"), 5)
	jobTimeout := common.ParseDuration(common.GetEnv("JOB_TIMEOUT", "5m"), 5*time.Minute)
	publishTimeout := common.ParseDuration(common.GetEnv("PUBLISH_TIMEOUT", "90s"), 90*time.Second)
	metricsAddr := common.GetEnv("METRICS_ADDR", ":9090")
	enrichBase := common.GetEnv("ENRICH_URL", "")
	phoneBase := common.GetEnv("PHONE_URL", "")

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{broker},
		Topic:   scrapeTopic,
		GroupID: groupID,
	})
	defer func() {
		if err := reader.Close(); err != nil {
			log.Printf("failed to close scrape reader: %v", err)
		}
	}()

	phoneReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{broker},
		Topic:   phoneTopic,
		GroupID: groupID + "-phones",
	})
	defer func() {
		if err := phoneReader.Close(); err != nil {
			log.Printf("failed to close phone reader: %v", err)
		}
	}()

	st := store.NewRedisStore(redisAddr, "leadhound:", storeTTL)
	defer func() {
		if err := st.Close(); err != nil {
			log.Printf("failed to close store: %v", err)
		}
	}()

	companiesWriter := &kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Topic:                  companiesTopic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: false,
	}
	defer func() {
		if err := companiesWriter.Close(); err != nil {
			log.Printf("failed to close companies writer: %v", err)
		}
	}()

	leadsWriter := &kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Topic:                  leadsTopic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: false,
	}
	defer func() {
		if err := leadsWriter.Close(); err != nil {
			log.Printf("failed to close leads writer: %v", err)
		}
	}()

	dlqWriter := &kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Topic:                  dlqTopic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: false,
	}
	defer func() {
		if err := dlqWriter.Close(); err != nil {
			log.Printf("failed to close dlq writer: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if metricsAddr != "" {
		startMetricsServer(ctx, metricsAddr)
	}

	httpClient := buildHTTPClient()
	robots := loadRobots(ctx, httpClient)

	commitCh := make(chan kafka.Message, concurrentJobs*2)
	coordinator := newCommitCoordinator(reader, commitCh)
	var coordWg sync.WaitGroup
	coordWg.Add(1)
	go coordinator.run(ctx, &coordWg)

	phoneCommitCh := make(chan kafka.Message, concurrentJobs*2)
	phoneCoordinator := newCommitCoordinator(phoneReader, phoneCommitCh)
	coordWg.Add(1)
	go phoneCoordinator.run(ctx, &coordWg)

	var wg sync.WaitGroup
	log.Printf("worker consuming topic=%s group=%s broker=%s concurrent_jobs=%d", scrapeTopic, groupID, broker, concurrentJobs)
	w := newWorker(
		reader,
		st,
		companiesWriter,
		leadsWriter,
		dlqWriter,
		retryMax,
		retryBase,
		retryMaxDelay,
		httpClient,
		enrichBase,
		concurrentJobs,
		jobTimeout,
		publishTimeout,
		commitCh,
		&wg,
		robots,
	)
	pw := newPhoneWorker(phoneReader, st, leadsWriter, dlqWriter, httpClient, phoneBase,
		retryMax, retryBase, retryMaxDelay, concurrentJobs, jobTimeout, phoneCommitCh, &wg)

	var loops sync.WaitGroup
	loops.Add(2)
	go func() {
		defer loops.Done()
		w.run(ctx)
	}()
	go func() {
		defer loops.Done()
		pw.run(ctx)
	}()
	loops.Wait()
	wg.Wait()
	close(commitCh)
	close(phoneCommitCh)
	coordWg.Wait()
}

// loadRobots fetches and parses robots.txt for every supported board when
// RESPECT_ROBOTS_TXT is enabled. A failed fetch leaves that board unchecked.
func loadRobots(ctx context.Context, client *http.Client) map[string]*boards.RobotsRules {
	respect := common.GetEnv("RESPECT_ROBOTS_TXT", "")
	if respect != "true" && respect != "1" {
		return nil
	}
	rules := make(map[string]*boards.RobotsRules)
	for _, board := range []string{boards.BoardRemotive, boards.BoardMuse} {
		base, err := boards.BaseURL(board)
		if err != nil {
			continue
		}
		robotsCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		body, err := boards.FetchRobots(robotsCtx, client, base)
		cancel()
		if err != nil {
			log.Printf("robots.txt fetch failed (will allow all paths): board=%s err=%v", board, err)
			continue
		}
		rules[board] = boards.ParseRobots(body, boards.DefaultUserAgent)
		log.Printf("loaded robots.txt: board=%s", board)
	}
	return rules
}

// run consumes messages from the scrape topic, dispatches to worker goroutines
// (bounded by semaphore), and routes commits through the coordinator.
func (w *worker) run(ctx context.Context) {
	for {
		msg, err := w.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("fetch error: %v", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if err := w.dispatchMessage(ctx, msg); err != nil {
			log.Printf("message dispatch error: %v", err)
		}
	}
}

// dispatchMessage parses the job and checks its run synchronously; spawns a
// goroutine for the fetch+publish phase. Unknown and already-terminal runs
// (e.g. cancelled while queued) are skipped and committed immediately.
func (w *worker) dispatchMessage(ctx context.Context, msg kafka.Message) error {
	var job models.ScrapeJob
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		log.Printf("invalid job payload: %v", err)
		w.commitCh <- msg
		return nil
	}

	atomic.AddUint64(&workerJobsReceived, 1)
	run, ok, err := w.store.GetRun(ctx, job.ICPID, job.RunID)
	if err != nil {
		return err
	}
	if !ok {
		atomic.AddUint64(&workerJobsSkipped, 1)
		log.Printf("unknown run skipped: run=%s icp=%s", job.RunID, job.ICPID)
		w.commitCh <- msg
		return nil
	}
	if run.Status.Terminal() {
		atomic.AddUint64(&workerJobsSkipped, 1)
		log.Printf("terminal run skipped: run=%s status=%s", run.ID, run.Status)
		w.commitCh <- msg
		return nil
	}

	now := time.Now().UTC()
	run.Status = models.RunRunning
	run.StartedAt = &now
	if err := w.store.SaveRun(ctx, run); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case w.sem <- struct{}{}:
	}
	atomic.AddInt64(&workerInFlight, 1)
	w.wg.Add(1)
	go w.processJobAsync(ctx, msg, job)
	return nil
}

// scrapeOutcome carries the result counts of one finished run.
type scrapeOutcome struct {
	jobsFound    int
	companies    int
	newCompanies int
	leadsCreated int
}

// processJobAsync fetches, publishes, and finalizes the run; runs in a worker
// goroutine. Uses a per-job context with timeout so one stuck run can't hold
// the slot forever. Defers sending msg to commitCh so the partition advances
// even on panic or timeout.
func (w *worker) processJobAsync(ctx context.Context, msg kafka.Message, job models.ScrapeJob) {
	// Always release slot and signal commit so one bad job doesn't block the partition.
	defer func() {
		atomic.AddInt64(&workerInFlight, -1)
		<-w.sem
		w.wg.Done()
		w.commitCh <- msg
	}()

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	started := time.Now()
	log.Printf("received job: run=%s board=%s query=%q partition=%d offset=%d", job.RunID, job.Board, job.Query, msg.Partition, msg.Offset)
	outcome, err := w.executeRun(jobCtx, job)
	if err != nil {
		atomic.AddUint64(&workerJobsFailed, 1)
		log.Printf("run failed: run=%s err=%v", job.RunID, err)

		// Bounded publish phase so a stuck Kafka write never blocks the commit path.
		publishCtx, publishCancel := context.WithTimeout(context.Background(), w.publishTimeout)
		if dlqErr := w.publishDLQ(publishCtx, job, err); dlqErr != nil {
			log.Printf("dlq publish error: %v", dlqErr)
		}
		publishCancel()
	} else {
		atomic.AddUint64(&workerJobsSuccess, 1)
	}

	finalizeCtx, finalizeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer finalizeCancel()
	if finalErr := w.finalizeRun(finalizeCtx, job, outcome, time.Since(started), err); finalErr != nil {
		log.Printf("finalize error: run=%s err=%v", job.RunID, finalErr)
	}
}

// executeRun fetches the board search results, dedupes companies, publishes
// discoveries, and (when an enrichment provider is configured) creates leads
// for newly discovered companies.
func (w *worker) executeRun(ctx context.Context, job models.ScrapeJob) (scrapeOutcome, error) {
	var outcome scrapeOutcome

	postings, err := w.fetchPostingsWithRetry(ctx, job)
	if err != nil {
		return outcome, err
	}
	outcome.jobsFound = len(postings)

	seen := make(map[string]bool)
	for _, posting := range postings {
		slug := boards.CompanySlug(posting.CompanyName)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		outcome.companies++

		isNew, err := w.store.SeenCompany(ctx, job.ICPID, slug)
		if err != nil {
			return outcome, err
		}
		if !isNew {
			continue
		}
		outcome.newCompanies++

		company := models.Company{
			Slug:         slug,
			Name:         posting.CompanyName,
			ICPID:        job.ICPID,
			RunID:        job.RunID,
			Board:        job.Board,
			JobTitle:     posting.Title,
			JobURL:       posting.URL,
			Location:     posting.Location,
			DiscoveredAt: time.Now().UTC(),
		}
		if err := w.store.AddCompany(ctx, company); err != nil {
			return outcome, err
		}
		if err := w.publishCompany(ctx, job, company); err != nil {
			return outcome, err
		}

		created, err := w.createLeads(ctx, job, company)
		if err != nil {
			// Enrichment is best effort: the company discovery stands.
			log.Printf("lead enrichment failed: company=%s err=%v", slug, err)
			continue
		}
		outcome.leadsCreated += created
	}
	return outcome, nil
}

// createLeads asks the enrichment provider for contacts at the company and
// stores one lead per contact. Returns how many leads were created.
func (w *worker) createLeads(ctx context.Context, job models.ScrapeJob, company models.Company) (int, error) {
	if w.enrichBase == "" {
		return 0, nil
	}
	fetchURL := w.enrichBase + "/contacts?company=" + url.QueryEscape(company.Slug)
	body, err := fetchJSONWithMetrics(ctx, w.client, fetchURL)
	if err != nil {
		return 0, err
	}
	contacts, err := boards.ParseEnrichResponse(body)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, contact := range contacts {
		if contact.Name == "" {
			continue
		}
		lead := models.Lead{
			ID:          uuid.NewString(),
			ICPID:       job.ICPID,
			CompanySlug: company.Slug,
			Name:        contact.Name,
			Title:       contact.Title,
			Email:       contact.Email,
			CreatedAt:   time.Now().UTC(),
		}
		if err := w.store.SaveLead(ctx, lead); err != nil {
			return created, err
		}
		if err := w.publishLead(ctx, job.RunID, lead); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// finalizeRun writes the terminal run record and bumps the ICP summary. A run
// that went terminal while we worked (e.g. cancelled, or cleaned up as stale)
// is left untouched: terminal statuses never regress.
func (w *worker) finalizeRun(ctx context.Context, job models.ScrapeJob, outcome scrapeOutcome, elapsed time.Duration, runErr error) error {
	run, ok, err := w.store.GetRun(ctx, job.ICPID, job.RunID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("run %s vanished", job.RunID)
	}
	if run.Status.Terminal() {
		log.Printf("run already terminal, leaving as-is: run=%s status=%s", run.ID, run.Status)
		return nil
	}

	now := time.Now().UTC()
	seconds := int(elapsed.Seconds())
	run.CompletedAt = &now
	run.Duration = &seconds
	if runErr != nil {
		run.Status = models.RunFailed
		run.Error = runErr.Error()
	} else {
		run.Status = models.RunCompleted
		run.JobsFound = &outcome.jobsFound
		run.Companies = &outcome.companies
		run.NewCompanies = &outcome.newCompanies
		run.LeadsCreated = &outcome.leadsCreated
	}
	if err := w.store.SaveRun(ctx, run); err != nil {
		return err
	}

	fields := map[string]int64{"runs_finished": 1}
	if runErr == nil {
		fields["jobs_found"] = int64(outcome.jobsFound)
		fields["companies_found"] = int64(outcome.companies)
		fields["new_companies"] = int64(outcome.newCompanies)
		fields["leads_created"] = int64(outcome.leadsCreated)
	}
	if err := w.store.BumpSummary(ctx, job.ICPID, fields); err != nil {
		return err
	}
	log.Printf("run finished: run=%s status=%s jobs=%d companies=%d new=%d leads=%d duration=%s",
		run.ID, run.Status, outcome.jobsFound, outcome.companies, outcome.newCompanies, outcome.leadsCreated, elapsed.Round(time.Second))
	return nil
}

// fetchPostings pulls and parses the board search results for one job.
func (w *worker) fetchPostings(ctx context.Context, job models.ScrapeJob) ([]boards.Posting, error) {
	searchURL, err := w.searchURL(job.Board, job.Query)
	if err != nil {
		return nil, err
	}
	if rules := w.robots[job.Board]; rules != nil {
		path := boards.PathFromURL(searchURL)
		if !rules.Allowed(path) {
			return nil, fmt.Errorf("robots.txt disallows path %s", path)
		}
	}
	body, err := fetchJSONWithMetrics(ctx, w.client, searchURL)
	if err != nil {
		return nil, err
	}
	return boards.ParsePostings(job.Board, body)
}

func (w *worker) fetchPostingsWithRetry(ctx context.Context, job models.ScrapeJob) ([]boards.Posting, error) {
	if w.retryMax <= 0 {
		return w.fetchPostings(ctx, job)
	}
	delay := w.retryBase
	attempts := 0
	for {
		postings, err := w.fetchPostings(ctx, job)
		if err == nil {
			return postings, nil
		}
		attempts++
		if attempts > w.retryMax {
			return nil, err
		}
		if delay > 0 {
			if w.retryMaxDelay > 0 && delay > w.retryMaxDelay {
				delay = w.retryMaxDelay
			}
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
			delay *= 2
		}
	}
}

func (w *worker) publishCompany(ctx context.Context, job models.ScrapeJob, company models.Company) error {
	if w.companiesWriter == nil {
		return nil
	}
	payload, err := models.NewCompanyResult(job.RunID, company)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(job.ICPID),
		Value: payload,
		Time:  time.Now().UTC(),
	}
	return w.companiesWriter.WriteMessages(ctx, msg)
}

func (w *worker) publishLead(ctx context.Context, runID string, lead models.Lead) error {
	if w.leadsWriter == nil {
		return nil
	}
	payload, err := models.NewLeadResult(runID, lead)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(lead.ICPID),
		Value: payload,
		Time:  time.Now().UTC(),
	}
	return w.leadsWriter.WriteMessages(ctx, msg)
}

func (w *worker) publishDLQ(ctx context.Context, job models.ScrapeJob, jobErr error) error {
	if w.dlqWriter == nil {
		return nil
	}
	payload, err := json.Marshal(models.ScrapeFailure{
		RunID:    job.RunID,
		ICPID:    job.ICPID,
		Board:    job.Board,
		Query:    job.Query,
		Error:    jobErr.Error(),
		FailedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(job.ICPID),
		Value: payload,
		Time:  time.Now().UTC(),
	}
	return w.dlqWriter.WriteMessages(ctx, msg)
}
