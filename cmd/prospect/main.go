package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"leadhound/internal/client"
	"leadhound/internal/models"
	"leadhound/internal/track"
)

func main() {
	apiBase := flag.String("api", "http://localhost:8080", "API base URL (nodePort when hitting Kind from host; e.g. http://localhost:30080)")
	icpID := flag.String("icp", "", "ICP ID to run scrapers for (required)")
	phones := flag.Bool("phones", false, "Queue phone enrichment after runs finish and track it")
	interval := flag.Duration("interval", track.DefaultRunInterval, "Run poll interval")
	timeout := flag.Duration("timeout", track.DefaultRunMaxDuration, "Give up tracking runs after this long")
	flag.Parse()

	if *icpID == "" {
		log.Fatal("missing required flag -icp")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *apiBase, *icpID, *phones, *interval, *timeout); err != nil {
		log.Fatal(err)
	}
}

// run kicks off scraper runs for the ICP, tracks them to a terminal state,
// and optionally queues and tracks phone enrichment afterwards.
func run(ctx context.Context, apiBase, icpID string, phones bool, interval, timeout time.Duration) error {
	c, err := client.New(apiBase)
	if err != nil {
		return err
	}

	runs, err := c.StartRuns(ctx, icpID)
	if err != nil {
		return fmt.Errorf("start runs: %w", err)
	}
	log.Printf("runs queued icp=%s count=%d", icpID, len(runs))

	refresh := newRefresh(c, icpID)
	tracker := track.NewRunTracker(track.RunTrackerConfig{
		Lister:      runLister{c: c, icpID: icpID},
		Refresh:     refresh,
		Interval:    interval,
		MaxDuration: timeout,
		Cleanup: func(ctx context.Context) error {
			res, err := c.CleanupRuns(ctx, icpID)
			if err != nil {
				return err
			}
			log.Printf("stale runs cleaned icp=%s count=%d", icpID, res.Cleaned)
			return nil
		},
	})
	tracker.Start(ctx)
	state := tracker.Wait()
	log.Printf("run tracking finished icp=%s state=%s", icpID, state)

	if !phones {
		return nil
	}

	res, err := c.EnrichPhones(ctx, icpID)
	if err != nil {
		return fmt.Errorf("enrich phones: %w", err)
	}
	log.Printf("phone enrichment queued icp=%s count=%d", icpID, res.Queued)
	if res.Queued == 0 {
		return nil
	}

	pt := track.NewPhoneTracker(track.PhoneTrackerConfig{
		Fetcher:  pendingFetcher{c: c},
		Refresh:  refresh,
		Interval: interval,
	})
	pt.Start(ctx, res.Queued)
	state = pt.Wait()
	log.Printf("phone tracking finished icp=%s state=%s", icpID, state)
	return nil
}

// newRefresh builds the dependent-data refresh set: each callback re-reads
// one server-side view and logs the counts it saw.
func newRefresh(c *client.Client, icpID string) track.Refresh {
	return track.Refresh{
		Companies: func(ctx context.Context) error {
			companies, err := c.Companies(ctx, icpID)
			if err != nil {
				return err
			}
			log.Printf("companies icp=%s count=%d", icpID, len(companies))
			return nil
		},
		Leads: func(ctx context.Context) error {
			leads, err := c.Leads(ctx, icpID)
			if err != nil {
				return err
			}
			log.Printf("leads icp=%s count=%d", icpID, len(leads))
			return nil
		},
		Summary: func(ctx context.Context) error {
			s, err := c.ICPSummary(ctx, icpID)
			if err != nil {
				return err
			}
			log.Printf("summary icp=%s jobs=%d companies=%d new=%d leads=%d runs=%d/%d",
				icpID, s.JobsFound, s.Companies, s.NewCompanies, s.LeadsCreated, s.RunsFinished, s.RunsStarted)
			return nil
		},
	}
}

// runLister adapts the API client to the tracker's listing interface for a
// fixed ICP.
type runLister struct {
	c     *client.Client
	icpID string
}

func (l runLister) ListRuns(ctx context.Context) ([]models.ScrapeRun, error) {
	return l.c.ListRuns(ctx, l.icpID)
}

// pendingFetcher adapts the phone-status endpoint to the tracker's
// pending-count interface.
type pendingFetcher struct {
	c *client.Client
}

func (f pendingFetcher) PendingPhones(ctx context.Context) (int, error) {
	status, err := f.c.PhoneStatus(ctx)
	if err != nil {
		return 0, err
	}
	return status.Summary.Pending, nil
}
