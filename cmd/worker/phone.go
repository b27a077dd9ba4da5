package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"leadhound/internal/boards"
	"leadhound/internal/models"
	"leadhound/internal/store"
)

// phoneWorker consumes phone-enrichment jobs. Each job targets one lead; the
// pending counter is decremented exactly once per job regardless of outcome
// so trackers watching the counter always converge to zero.
type phoneWorker struct {
	reader        messageReader
	store         store.Store
	leadsWriter   resultWriter
	dlqWriter     resultWriter
	client        *http.Client
	phoneBase     string // phone provider base URL; "" fails every job
	retryMax      int
	retryBase     time.Duration
	retryMaxDelay time.Duration
	jobTimeout    time.Duration
	commitCh      chan<- kafka.Message
	sem           chan struct{}
	wg            *sync.WaitGroup
}

func newPhoneWorker(
	reader messageReader,
	st store.Store,
	leadsWriter resultWriter,
	dlqWriter resultWriter,
	client *http.Client,
	phoneBase string,
	retryMax int,
	retryBase time.Duration,
	retryMaxDelay time.Duration,
	concurrentJobs int,
	jobTimeout time.Duration,
	commitCh chan<- kafka.Message,
	wg *sync.WaitGroup,
) *phoneWorker {
	if concurrentJobs < 1 {
		concurrentJobs = 1
	}
	if jobTimeout <= 0 {
		jobTimeout = 5 * time.Minute
	}
	return &phoneWorker{
		reader:        reader,
		store:         st,
		leadsWriter:   leadsWriter,
		dlqWriter:     dlqWriter,
		client:        client,
		phoneBase:     phoneBase,
		retryMax:      retryMax,
		retryBase:     retryBase,
		retryMaxDelay: retryMaxDelay,
		jobTimeout:    jobTimeout,
		commitCh:      commitCh,
		sem:           make(chan struct{}, concurrentJobs),
		wg:            wg,
	}
}

func (w *phoneWorker) run(ctx context.Context) {
	for {
		msg, err := w.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("phone fetch error: %v", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if err := w.dispatchMessage(ctx, msg); err != nil {
			log.Printf("phone dispatch error: %v", err)
		}
	}
}

func (w *phoneWorker) dispatchMessage(ctx context.Context, msg kafka.Message) error {
	var job models.PhoneJob
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		log.Printf("invalid phone job payload: %v", err)
		w.commitCh <- msg
		return nil
	}

	atomic.AddUint64(&workerPhoneJobsReceived, 1)
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

func (w *phoneWorker) processJobAsync(ctx context.Context, msg kafka.Message, job models.PhoneJob) {
	defer func() {
		atomic.AddInt64(&workerInFlight, -1)
		<-w.sem
		w.wg.Done()
		w.commitCh <- msg
	}()

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	err := w.enrichLead(jobCtx, job)
	if err != nil {
		atomic.AddUint64(&workerPhoneJobsFailed, 1)
		log.Printf("phone enrichment failed: lead=%s err=%v", job.LeadID, err)
		dlqCtx, dlqCancel := context.WithTimeout(context.Background(), 30*time.Second)
		if dlqErr := w.publishDLQ(dlqCtx, job, err); dlqErr != nil {
			log.Printf("phone dlq publish error: %v", dlqErr)
		}
		dlqCancel()
	} else {
		atomic.AddUint64(&workerPhoneJobsSuccess, 1)
	}

	// Decrement after processing, success or not. Uses a fresh context so a
	// job timeout can't leave the counter stuck above zero.
	counterCtx, counterCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer counterCancel()
	if _, err := w.store.AddPendingPhones(counterCtx, -1); err != nil {
		log.Printf("pending counter decrement failed: lead=%s err=%v", job.LeadID, err)
	}
}

// enrichLead looks up the lead, asks the phone provider for a number, and
// saves and republishes the enriched lead.
func (w *phoneWorker) enrichLead(ctx context.Context, job models.PhoneJob) error {
	lead, ok, err := w.store.GetLead(ctx, job.LeadID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("lead %s not found", job.LeadID)
	}
	if lead.Phone != "" {
		log.Printf("lead already has phone, skipping: lead=%s", lead.ID)
		return nil
	}

	phone, err := w.fetchPhoneWithRetry(ctx, lead)
	if err != nil {
		return err
	}
	if phone == "" {
		return fmt.Errorf("provider returned no phone for lead %s", lead.ID)
	}

	now := time.Now().UTC()
	lead.Phone = phone
	lead.EnrichedAt = &now
	if err := w.store.SaveLead(ctx, lead); err != nil {
		return err
	}
	if err := w.publishLead(ctx, lead); err != nil {
		return err
	}
	log.Printf("lead enriched: lead=%s company=%s", lead.ID, lead.CompanySlug)
	return nil
}

func (w *phoneWorker) fetchPhone(ctx context.Context, lead models.Lead) (string, error) {
	if w.phoneBase == "" {
		return "", fmt.Errorf("no phone provider configured")
	}
	fetchURL := w.phoneBase + "/phone?" + url.Values{
		"name":    {lead.Name},
		"company": {lead.CompanySlug},
	}.Encode()
	body, err := fetchJSONWithMetrics(ctx, w.client, fetchURL)
	if err != nil {
		return "", err
	}
	return boards.ParsePhoneResponse(body)
}

func (w *phoneWorker) fetchPhoneWithRetry(ctx context.Context, lead models.Lead) (string, error) {
	if w.retryMax <= 0 {
		return w.fetchPhone(ctx, lead)
	}
	delay := w.retryBase
	attempts := 0
	for {
		phone, err := w.fetchPhone(ctx, lead)
		if err == nil {
			return phone, nil
		}
		attempts++
		if attempts > w.retryMax {
			return "", err
		}
		if delay > 0 {
			if w.retryMaxDelay > 0 && delay > w.retryMaxDelay {
				delay = w.retryMaxDelay
			}
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", ctx.Err()
			case <-timer.C:
			}
			delay *= 2
		}
	}
}

func (w *phoneWorker) publishLead(ctx context.Context, lead models.Lead) error {
	if w.leadsWriter == nil {
		return nil
	}
	payload, err := models.NewLeadResult("", lead)
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

func (w *phoneWorker) publishDLQ(ctx context.Context, job models.PhoneJob, jobErr error) error {
	if w.dlqWriter == nil {
		return nil
	}
	payload, err := json.Marshal(models.ScrapeFailure{
		LeadID:   job.LeadID,
		ICPID:    job.ICPID,
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
