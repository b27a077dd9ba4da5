package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/segmentio/kafka-go"

	"leadhound/common"
	"leadhound/internal/graph"
	"leadhound/internal/models"
	"leadhound/internal/pipeline"
)

// crmWriter projects company and lead discoveries into the Neo4j CRM graph:
// (:Company)-[:MATCHES]->(:ICP) and (:Lead)-[:WORKS_AT]->(:Company).
type crmWriter struct {
	driver graph.DriverSessioner
}

var (
	// Counters for crm-writer throughput and failures exposed on /metrics.
	crmWriterCompaniesReceived uint64
	crmWriterCompaniesFailed   uint64
	crmWriterCompaniesWritten  uint64
	crmWriterLeadsReceived     uint64
	crmWriterLeadsFailed       uint64
	crmWriterLeadsWritten      uint64
)

type neo4jDriver struct {
	driver neo4j.DriverWithContext
}

func (d *neo4jDriver) NewSession(ctx context.Context, config neo4j.SessionConfig) graph.SessionRunner {
	return d.driver.NewSession(ctx, config)
}

func (d *neo4jDriver) Close(ctx context.Context) error {
	return d.driver.Close(ctx)
}

func main() {
	broker := common.GetEnv("KAFKA_BROKER", "localhost:9092")
	companiesTopic := common.GetEnv("KAFKA_COMPANIES_TOPIC", "leadhound.companies")
	leadsTopic := common.GetEnv("KAFKA_LEADS_TOPIC", "leadhound.leads")
	companiesGroup := common.GetEnv("KAFKA_COMPANIES_GROUP", "leadhound-crm-companies")
	leadsGroup := common.GetEnv("KAFKA_LEADS_GROUP", "leadhound-crm-leads")
	metricsAddr := common.GetEnv("METRICS_ADDR", ":9091")

	neo4jURI := common.GetEnv("NEO4J_URI", "neo4j://localhost:7687")
	neo4jUser := common.GetEnv("NEO4J_USER", "neo4j")
	neo4jPassword := common.GetEnv("NEO4J_PASSWORD", "neo4j")

	driver, err := neo4j.NewDriverWithContext(neo4jURI, neo4j.BasicAuth(neo4jUser, neo4jPassword, ""))
	if err != nil {
		log.Fatalf("neo4j driver error: %v", err)
	}
	defer func() {
		if err := driver.Close(context.Background()); err != nil {
			log.Printf("neo4j close error: %v", err)
		}
	}()

	writer := &crmWriter{driver: &neo4jDriver{driver: driver}}

	companiesReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{broker},
		Topic:   companiesTopic,
		GroupID: companiesGroup,
	})
	defer func() {
		if err := companiesReader.Close(); err != nil {
			log.Printf("companies reader close error: %v", err)
		}
	}()

	leadsReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{broker},
		Topic:   leadsTopic,
		GroupID: leadsGroup,
	})
	defer func() {
		if err := leadsReader.Close(); err != nil {
			log.Printf("leads reader close error: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if metricsAddr != "" {
		startMetricsServer(ctx, metricsAddr)
	}

	go consumeCompanies(ctx, companiesReader, writer)
	go consumeLeads(ctx, leadsReader, writer)

	<-ctx.Done()
}

func startMetricsServer(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", handleMetrics)

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("metrics shutdown error: %v", err)
		}
	}()

	go func() {
		log.Printf("metrics listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
}

func handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.WriteHeader(http.StatusOK)
	body := fmt.Sprintf(
		"leadhound_crm_writer_up 1\n"+
			"leadhound_crm_writer_companies_received_total %d\n"+
			"leadhound_crm_writer_companies_failed_total %d\n"+
			"leadhound_crm_writer_companies_written_total %d\n"+
			"leadhound_crm_writer_leads_received_total %d\n"+
			"leadhound_crm_writer_leads_failed_total %d\n"+
			"leadhound_crm_writer_leads_written_total %d\n",
		atomic.LoadUint64(&crmWriterCompaniesReceived),
		atomic.LoadUint64(&crmWriterCompaniesFailed),
		atomic.LoadUint64(&crmWriterCompaniesWritten),
		atomic.LoadUint64(&crmWriterLeadsReceived),
		atomic.LoadUint64(&crmWriterLeadsFailed),
		atomic.LoadUint64(&crmWriterLeadsWritten),
	)
	_, _ = w.Write([]byte(body))
}

func consumeCompanies(ctx context.Context, reader pipeline.MessageReader, writer *crmWriter) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("companies fetch error: %v", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}

		atomic.AddUint64(&crmWriterCompaniesReceived, 1)
		if err := writer.writeCompany(ctx, msg.Value); err != nil {
			atomic.AddUint64(&crmWriterCompaniesFailed, 1)
			log.Printf("company write error: %v", err)
			continue
		}
		atomic.AddUint64(&crmWriterCompaniesWritten, 1)

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Printf("companies commit error: %v", err)
		}
	}
}

func consumeLeads(ctx context.Context, reader pipeline.MessageReader, writer *crmWriter) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("leads fetch error: %v", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}

		atomic.AddUint64(&crmWriterLeadsReceived, 1)
		if err := writer.writeLead(ctx, msg.Value); err != nil {
			atomic.AddUint64(&crmWriterLeadsFailed, 1)
			log.Printf("lead write error: %v", err)
			continue
		}
		atomic.AddUint64(&crmWriterLeadsWritten, 1)

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Printf("leads commit error: %v", err)
		}
	}
}

func (w *crmWriter) writeCompany(ctx context.Context, payload []byte) error {
	var result models.CompanyResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return err
	}
	if result.Company.Slug == "" {
		return nil
	}

	query, params := buildCompanyQuery(result)
	return graph.ExecWrite(ctx, w.driver, query, params)
}

func (w *crmWriter) writeLead(ctx context.Context, payload []byte) error {
	var result models.LeadResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return err
	}
	if result.Lead.ID == "" {
		return nil
	}

	query, params := buildLeadQuery(result)
	return graph.ExecWrite(ctx, w.driver, query, params)
}

// buildCompanyQuery merges the company node and links it to its ICP. Optional
// posting fields are coalesced so replays never blank out existing data.
func buildCompanyQuery(result models.CompanyResult) (string, map[string]any) {
	query := "MERGE (c:Company {slug: $slug}) " +
		"SET c.name = coalesce($name, c.name), " +
		"c.board = coalesce($board, c.board), " +
		"c.job_title = coalesce($job_title, c.job_title), " +
		"c.job_url = coalesce($job_url, c.job_url), " +
		"c.location = coalesce($location, c.location) " +
		"MERGE (i:ICP {id: $icp_id}) " +
		"MERGE (c)-[r:MATCHES]->(i) " +
		"SET r.run_id = $run_id"

	company := result.Company
	params := map[string]any{
		"slug":      company.Slug,
		"name":      optional(company.Name),
		"board":     optional(company.Board),
		"job_title": optional(company.JobTitle),
		"job_url":   optional(company.JobURL),
		"location":  optional(company.Location),
		"icp_id":    result.ICPID,
		"run_id":    result.RunID,
	}
	return query, params
}

// buildLeadQuery merges the lead node and its employment edge. Phone arrives
// late (enrichment), so every field is coalesced.
func buildLeadQuery(result models.LeadResult) (string, map[string]any) {
	query := "MERGE (l:Lead {id: $id}) " +
		"SET l.name = coalesce($name, l.name), " +
		"l.title = coalesce($title, l.title), " +
		"l.email = coalesce($email, l.email), " +
		"l.phone = coalesce($phone, l.phone) " +
		"MERGE (c:Company {slug: $company_slug}) " +
		"MERGE (l)-[:WORKS_AT]->(c)"

	lead := result.Lead
	params := map[string]any{
		"id":           lead.ID,
		"name":         optional(lead.Name),
		"title":        optional(lead.Title),
		"email":        optional(lead.Email),
		"phone":        optional(lead.Phone),
		"company_slug": lead.CompanySlug,
	}
	return query, params
}

// optional maps "" to nil so coalesce keeps the existing property.
func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}
