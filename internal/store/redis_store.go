package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"leadhound/internal/models"
)

// RedisStore implements Store on a single Redis instance.
//
// Key layout (all under prefix, default "leadhound:"):
//
//	run:{icp}:{runID}      JSON ScrapeRun
//	runs:{icp}             set of run IDs
//	icp:{id}               JSON ICP
//	summary:{icp}          hash of aggregate counters
//	seen:company:{icp}:{slug}  dedupe marker
//	companies:{icp}        list of JSON Company, newest first
//	lead:{id}              JSON Lead
//	leads:{icp}            list of lead IDs, newest first
//	phones:pending         pending phone-enrichment counter
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore initializes a Redis-backed Store.
func NewRedisStore(addr, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		prefix: prefix,
		ttl:    ttl,
	}
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) runKey(icpID, runID string) string {
	return s.prefix + "run:" + icpID + ":" + runID
}

func (s *RedisStore) runsKey(icpID string) string { return s.prefix + "runs:" + icpID }

func (s *RedisStore) icpKey(id string) string { return s.prefix + "icp:" + id }

func (s *RedisStore) summaryKey(icpID string) string { return s.prefix + "summary:" + icpID }

func (s *RedisStore) companiesKey(icpID string) string { return s.prefix + "companies:" + icpID }

func (s *RedisStore) leadKey(id string) string { return s.prefix + "lead:" + id }

func (s *RedisStore) leadsKey(icpID string) string { return s.prefix + "leads:" + icpID }

func (s *RedisStore) pendingKey() string { return s.prefix + "phones:pending" }

// SaveRun writes the run record and indexes it under its ICP.
func (s *RedisStore) SaveRun(ctx context.Context, run models.ScrapeRun) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.runKey(run.ICPID, run.ID), payload, s.ttl).Err(); err != nil {
		return err
	}
	if err := s.client.SAdd(ctx, s.runsKey(run.ICPID), run.ID).Err(); err != nil {
		return err
	}
	return s.client.Expire(ctx, s.runsKey(run.ICPID), s.ttl).Err()
}

// GetRun reads one run record.
func (s *RedisStore) GetRun(ctx context.Context, icpID, runID string) (models.ScrapeRun, bool, error) {
	val, err := s.client.Get(ctx, s.runKey(icpID, runID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.ScrapeRun{}, false, nil
		}
		return models.ScrapeRun{}, false, err
	}
	var run models.ScrapeRun
	if err := json.Unmarshal([]byte(val), &run); err != nil {
		return models.ScrapeRun{}, false, err
	}
	return run, true, nil
}

// ListRuns returns all run records for an ICP, newest first. Index entries
// whose record expired are skipped.
func (s *RedisStore) ListRuns(ctx context.Context, icpID string) ([]models.ScrapeRun, error) {
	ids, err := s.client.SMembers(ctx, s.runsKey(icpID)).Result()
	if err != nil {
		return nil, err
	}
	runs := make([]models.ScrapeRun, 0, len(ids))
	for _, id := range ids {
		run, ok, err := s.GetRun(ctx, icpID, id)
		if err != nil {
			return nil, err
		}
		if ok {
			runs = append(runs, run)
		}
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	return runs, nil
}

// CleanupStale marks non-terminal runs older than olderThan as failed.
func (s *RedisStore) CleanupStale(ctx context.Context, icpID string, olderThan time.Duration) (int, error) {
	runs, err := s.ListRuns(ctx, icpID)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	cleaned := 0
	for _, run := range runs {
		if run.Status.Terminal() || run.CreatedAt.After(cutoff) {
			continue
		}
		now := time.Now().UTC()
		run.Status = models.RunFailed
		run.Error = "cleaned up as stale"
		run.CompletedAt = &now
		if err := s.SaveRun(ctx, run); err != nil {
			return cleaned, err
		}
		cleaned++
	}
	return cleaned, nil
}

// SaveICP writes an ICP definition. ICPs do not expire.
func (s *RedisStore) SaveICP(ctx context.Context, icp models.ICP) error {
	payload, err := json.Marshal(icp)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.icpKey(icp.ID), payload, 0).Err()
}

// GetICP reads an ICP definition.
func (s *RedisStore) GetICP(ctx context.Context, id string) (models.ICP, bool, error) {
	val, err := s.client.Get(ctx, s.icpKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.ICP{}, false, nil
		}
		return models.ICP{}, false, err
	}
	var icp models.ICP
	if err := json.Unmarshal([]byte(val), &icp); err != nil {
		return models.ICP{}, false, err
	}
	return icp, true, nil
}

// BumpSummary increments aggregate counters for an ICP.
func (s *RedisStore) BumpSummary(ctx context.Context, icpID string, fields map[string]int64) error {
	key := s.summaryKey(icpID)
	for field, delta := range fields {
		if delta == 0 {
			continue
		}
		if err := s.client.HIncrBy(ctx, key, field, delta).Err(); err != nil {
			return err
		}
	}
	return nil
}

// Summary reads the aggregate counters for an ICP. Missing fields read as 0.
func (s *RedisStore) Summary(ctx context.Context, icpID string) (models.ICPSummary, error) {
	vals, err := s.client.HGetAll(ctx, s.summaryKey(icpID)).Result()
	if err != nil {
		return models.ICPSummary{}, err
	}
	summary := models.ICPSummary{ICPID: icpID}
	read := func(field string) int {
		n, err := strconv.Atoi(vals[field])
		if err != nil {
			return 0
		}
		return n
	}
	summary.JobsFound = read("jobs_found")
	summary.Companies = read("companies_found")
	summary.NewCompanies = read("new_companies")
	summary.LeadsCreated = read("leads_created")
	summary.RunsStarted = read("runs_started")
	summary.RunsFinished = read("runs_finished")
	return summary, nil
}

// SeenCompany records the slug for the ICP and reports whether it was new.
func (s *RedisStore) SeenCompany(ctx context.Context, icpID, slug string) (bool, error) {
	key := s.prefix + "seen:company:" + icpID + ":" + slug
	return s.client.SetNX(ctx, key, "1", s.ttl).Result()
}

// AddCompany prepends the company to its ICP listing, capped at 1000 entries.
func (s *RedisStore) AddCompany(ctx context.Context, company models.Company) error {
	payload, err := json.Marshal(company)
	if err != nil {
		return err
	}
	key := s.companiesKey(company.ICPID)
	if err := s.client.LPush(ctx, key, payload).Err(); err != nil {
		return err
	}
	return s.client.LTrim(ctx, key, 0, 999).Err()
}

// Companies returns up to limit companies for an ICP, newest first.
func (s *RedisStore) Companies(ctx context.Context, icpID string, limit int) ([]models.Company, error) {
	if limit <= 0 {
		limit = 100
	}
	vals, err := s.client.LRange(ctx, s.companiesKey(icpID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	companies := make([]models.Company, 0, len(vals))
	for _, val := range vals {
		var company models.Company
		if err := json.Unmarshal([]byte(val), &company); err != nil {
			return nil, err
		}
		companies = append(companies, company)
	}
	return companies, nil
}

// SaveLead writes the lead and indexes it under its ICP if not yet indexed.
func (s *RedisStore) SaveLead(ctx context.Context, lead models.Lead) error {
	payload, err := json.Marshal(lead)
	if err != nil {
		return err
	}
	created, err := s.client.SetNX(ctx, s.leadKey(lead.ID), payload, 0).Result()
	if err != nil {
		return err
	}
	if !created {
		if err := s.client.Set(ctx, s.leadKey(lead.ID), payload, 0).Err(); err != nil {
			return err
		}
		return nil
	}
	return s.client.LPush(ctx, s.leadsKey(lead.ICPID), lead.ID).Err()
}

// GetLead reads one lead.
func (s *RedisStore) GetLead(ctx context.Context, id string) (models.Lead, bool, error) {
	val, err := s.client.Get(ctx, s.leadKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Lead{}, false, nil
		}
		return models.Lead{}, false, err
	}
	var lead models.Lead
	if err := json.Unmarshal([]byte(val), &lead); err != nil {
		return models.Lead{}, false, err
	}
	return lead, true, nil
}

// Leads returns up to limit leads for an ICP, newest first. Index entries for
// deleted leads are skipped.
func (s *RedisStore) Leads(ctx context.Context, icpID string, limit int) ([]models.Lead, error) {
	if limit <= 0 {
		limit = 100
	}
	ids, err := s.client.LRange(ctx, s.leadsKey(icpID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	leads := make([]models.Lead, 0, len(ids))
	for _, id := range ids {
		lead, ok, err := s.GetLead(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			leads = append(leads, lead)
		}
	}
	return leads, nil
}

// AddPendingPhones adjusts the pending counter and returns the new value,
// clamped at zero so a duplicate decrement cannot drive it negative.
func (s *RedisStore) AddPendingPhones(ctx context.Context, delta int) (int, error) {
	val, err := s.client.IncrBy(ctx, s.pendingKey(), int64(delta)).Result()
	if err != nil {
		return 0, err
	}
	if val < 0 {
		if err := s.client.Set(ctx, s.pendingKey(), 0, 0).Err(); err != nil {
			return 0, err
		}
		val = 0
	}
	return int(val), nil
}

// PendingPhones returns the current pending counter.
func (s *RedisStore) PendingPhones(ctx context.Context) (int, error) {
	val, err := s.client.Get(ctx, s.pendingKey()).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	if val < 0 {
		val = 0
	}
	return val, nil
}
