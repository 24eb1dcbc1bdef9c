package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"domainscan/internal/domain"
	"domainscan/internal/enrichment"
	"domainscan/internal/ports"
)

// Skip reasons reported when an invocation exits without processing.
const (
	SkipNotWorkingDay = "not a working day"
	SkipBudgetReached = "daily scrape limit reached"
	SkipLeaseHeld     = "another invocation holds the lease"
	SkipNoActiveJobs  = "no active jobs"
	SkipNoDomainsDue  = "no domains due"
)

// RunnerConfig carries every tunable of the batch runner.
type RunnerConfig struct {
	MaxConcurrentJobs int
	DailyScrapeLimit  int
	// BatchSize caps domains per invocation, keeping one run inside the
	// external trigger's timeout.
	BatchSize  int
	MaxRetries int
	// DelayMin/DelayMax bound the randomized pause between domains. The
	// pause is a rate-shaping primitive for the upstream API, not an
	// incidental wait.
	DelayMin time.Duration
	DelayMax time.Duration
	// WorkingDays gates invocations to a weekday set evaluated in Location.
	// Empty means every day is allowed.
	WorkingDays map[time.Weekday]bool
	Location    *time.Location
	LeaseTTL    time.Duration
	// FailJobsWhenAllFailed switches the completion sweep to mark a job
	// failed when none of its domains succeeded. Off by default: the sweep
	// then resolves every finished job to completed regardless of failures.
	FailJobsWhenAllFailed bool
}

// Report summarizes one batch invocation.
type Report struct {
	Date         time.Time
	Skipped      string
	ScrapedToday int
	Processed    int
	Failed       int
	Total        int
	Recovered    int
	Promoted     int
}

// RunnerDeps wires all driven adapters into the batch runner.
type RunnerDeps struct {
	Domains  ports.DomainStore
	Jobs     ports.JobStore
	Metrics  ports.MetricsStore
	Registry *enrichment.Registry
	Lease    ports.Lease
	Logger   *slog.Logger
}

// Runner executes one bounded unit of enrichment work per invocation. It is
// single-flight: an advisory lease rejects overlapping invocations, and all
// processing within a run is strictly sequential.
type Runner struct {
	cfg      RunnerConfig
	domains  ports.DomainStore
	jobs     ports.JobStore
	metrics  ports.MetricsStore
	registry *enrichment.Registry
	lease    ports.Lease
	logger   *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	delay func() time.Duration
}

// NewRunner constructs the batch runner.
func NewRunner(cfg RunnerConfig, deps RunnerDeps) *Runner {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := &Runner{
		cfg:      cfg,
		domains:  deps.Domains,
		jobs:     deps.Jobs,
		metrics:  deps.Metrics,
		registry: deps.Registry,
		lease:    deps.Lease,
		logger:   deps.Logger,
		now:      time.Now,
		sleep:    sleepCtx,
	}
	r.delay = r.randomDelay
	return r
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) randomDelay() time.Duration {
	spread := r.cfg.DelayMax - r.cfg.DelayMin
	if spread <= 0 {
		return r.cfg.DelayMin
	}
	return r.cfg.DelayMin + rand.N(spread+1)
}

func (r *Runner) workingDay(now time.Time) bool {
	if len(r.cfg.WorkingDays) == 0 {
		return true
	}
	return r.cfg.WorkingDays[now.Weekday()]
}

// Run performs one invocation: budget check, stuck-state recovery, active job
// selection, quota allocation, sequential processing, completion sweep, and
// queue promotion. Per-domain failures never abort the loop; any other error
// aborts the invocation and surfaces to the caller, with whatever status
// writes already happened left in place.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	now := r.now().In(r.cfg.Location)
	today := Day(now)
	report := Report{Date: today}

	if !r.workingDay(now) {
		r.logger.Info("skipping invocation", "reason", SkipNotWorkingDay)
		report.Skipped = SkipNotWorkingDay
		return report, nil
	}

	if r.lease != nil {
		holder := fmt.Sprintf("batch-%d", now.UnixNano())
		acquired, err := r.lease.Acquire(ctx, holder, r.cfg.LeaseTTL)
		if err != nil {
			return report, fmt.Errorf("acquire lease: %w", err)
		}
		if !acquired {
			r.logger.Warn("skipping invocation", "reason", SkipLeaseHeld)
			report.Skipped = SkipLeaseHeld
			return report, nil
		}
		defer func() {
			if err := r.lease.Release(ctx, holder); err != nil {
				r.logger.Error("release lease", "error", err)
			}
		}()
	}

	scrapedToday, err := r.metrics.CountCheckedSince(ctx, today)
	if err != nil {
		return report, fmt.Errorf("count scraped today: %w", err)
	}
	report.ScrapedToday = scrapedToday

	remainingBudget := r.cfg.DailyScrapeLimit - scrapedToday
	r.logger.Info("daily budget",
		"scraped", scrapedToday, "limit", r.cfg.DailyScrapeLimit, "remaining", remainingBudget)
	if remainingBudget <= 0 {
		report.Skipped = SkipBudgetReached
		return report, nil
	}

	// Recover domains orphaned in processing by a crashed or timed-out run.
	// Unconditional: the lease guarantees no sibling invocation is live.
	recovered, err := r.domains.ResetProcessing(ctx)
	if err != nil {
		return report, fmt.Errorf("reset stuck domains: %w", err)
	}
	report.Recovered = recovered
	if recovered > 0 {
		r.logger.Info("recovered stuck domains", "count", recovered)
	}

	active, err := r.jobs.ListActive(ctx, r.cfg.MaxConcurrentJobs)
	if err != nil {
		return report, fmt.Errorf("list active jobs: %w", err)
	}
	if len(active) == 0 {
		report.Skipped = SkipNoActiveJobs
		promoted, err := r.promote(ctx)
		if err != nil {
			return report, err
		}
		report.Promoted = promoted
		return report, nil
	}

	kindByJob := make(map[string]domain.EnrichmentKind, len(active))
	activeIDs := make([]string, len(active))
	for i, job := range active {
		activeIDs[i] = job.ID
		kindByJob[job.ID] = job.Kind
	}

	remaining := make(map[string]int, len(active))
	for _, id := range activeIDs {
		count, err := r.domains.CountDue(ctx, id, today)
		if err != nil {
			return report, fmt.Errorf("count due domains for job %s: %w", id, err)
		}
		remaining[id] = count
	}

	batch := min(r.cfg.BatchSize, remainingBudget)
	quotas := AllocateQuotas(activeIDs, remaining, batch)
	r.logger.Info("quota allocation", "jobs", len(activeIDs), "batch", batch, "quotas", quotas)

	var toProcess []domain.Domain
	for _, id := range activeIDs {
		if quotas[id] <= 0 {
			continue
		}
		due, err := r.domains.ListDue(ctx, id, today, quotas[id])
		if err != nil {
			return report, fmt.Errorf("list due domains for job %s: %w", id, err)
		}
		toProcess = append(toProcess, due...)
	}

	if len(toProcess) == 0 {
		report.Skipped = SkipNoDomainsDue
		if err := r.sweepAndPromote(ctx, activeIDs, &report); err != nil {
			return report, err
		}
		return report, nil
	}

	report.Total = len(toProcess)
	r.logger.Info("processing batch", "domains", len(toProcess), "jobs", len(activeIDs))

	for _, id := range activeIDs {
		if err := r.jobs.SetStatus(ctx, id, domain.JobRunning); err != nil {
			return report, fmt.Errorf("mark job %s running: %w", id, err)
		}
	}

	for i, d := range toProcess {
		r.process(ctx, d, kindByJob[d.JobID], &report)

		if i < len(toProcess)-1 {
			pause := r.delay()
			r.logger.Info("throttling before next domain", "wait", pause)
			if err := r.sleep(ctx, pause); err != nil {
				return report, fmt.Errorf("inter-domain delay: %w", err)
			}
		}
	}

	if err := r.sweepAndPromote(ctx, activeIDs, &report); err != nil {
		return report, err
	}

	r.logger.Info("invocation complete",
		"processed", report.Processed, "failed", report.Failed, "total", report.Total)
	return report, nil
}

// process handles a single domain. Failures are converted into status writes
// and never propagate: each domain's outcome is independent.
func (r *Runner) process(ctx context.Context, d domain.Domain, kind domain.EnrichmentKind, report *Report) {
	logger := r.logger.With("domain", d.Name, "job", d.JobID)

	if err := r.domains.SetStatus(ctx, d.ID, domain.DomainProcessing); err != nil {
		logger.Error("mark processing", "error", err)
		return
	}

	err := r.enrich(ctx, d, kind)
	if err == nil {
		if err := r.domains.SetStatus(ctx, d.ID, domain.DomainCompleted); err != nil {
			logger.Error("mark completed", "error", err)
			return
		}
		report.Processed++
		logger.Info("domain completed")
		return
	}

	logger.Error("domain processing failed", "error", err, "retry_count", d.RetryCount)

	retryCount := d.RetryCount + 1
	status := domain.DomainPending
	if retryCount >= r.cfg.MaxRetries {
		status = domain.DomainFailed
		report.Failed++
	}
	if markErr := r.domains.MarkFailure(ctx, d.ID, status, retryCount, err.Error()); markErr != nil {
		logger.Error("record failure", "error", markErr)
	}
}

func (r *Runner) enrich(ctx context.Context, d domain.Domain, kind domain.EnrichmentKind) error {
	enricher, err := r.registry.Resolve(kind)
	if err != nil {
		return err
	}
	return enricher.Enrich(ctx, d)
}

// sweepAndPromote closes out jobs whose domains have all reached a terminal
// status, then fills freed slots from the queue.
func (r *Runner) sweepAndPromote(ctx context.Context, activeIDs []string, report *Report) error {
	for _, id := range activeIDs {
		stats, err := r.domains.Stats(ctx, id)
		if err != nil {
			return fmt.Errorf("job %s stats: %w", id, err)
		}
		if !stats.Done() {
			continue
		}

		final := domain.JobCompleted
		if r.cfg.FailJobsWhenAllFailed && stats.AllFailed() {
			final = domain.JobFailed
		}
		if err := r.jobs.SetStatus(ctx, id, final); err != nil {
			return fmt.Errorf("finish job %s: %w", id, err)
		}
		r.logger.Info("job finished", "job", id, "status", final,
			"completed", stats.Completed, "failed", stats.Failed)
	}

	promoted, err := r.promote(ctx)
	if err != nil {
		return err
	}
	report.Promoted = promoted
	return nil
}

// promote moves the oldest queued jobs into the active set until it is full.
func (r *Runner) promote(ctx context.Context) (int, error) {
	activeCount, err := r.jobs.CountActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("count active jobs: %w", err)
	}

	slots := r.cfg.MaxConcurrentJobs - activeCount
	if slots <= 0 {
		return 0, nil
	}

	queued, err := r.jobs.ListQueued(ctx, slots)
	if err != nil {
		return 0, fmt.Errorf("list queued jobs: %w", err)
	}

	for _, job := range queued {
		if err := r.jobs.SetStatus(ctx, job.ID, domain.JobPending); err != nil {
			return 0, fmt.Errorf("promote job %s: %w", job.ID, err)
		}
		r.logger.Info("promoted queued job", "job", job.ID, "name", job.Name)
	}

	return len(queued), nil
}
