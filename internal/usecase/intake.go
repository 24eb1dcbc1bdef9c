package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"domainscan/internal/domain"
	"domainscan/internal/ports"
)

// IntakeConfig carries the upload-time scheduling tunables.
type IntakeConfig struct {
	SchedulingDays    int
	MaxDomainsPerDay  int
	MaxConcurrentJobs int
}

// Intake creates jobs from validated domain lists, spreading the work across
// the scheduling window. How the list was produced (CSV upload, API call) is
// the caller's concern.
type Intake struct {
	cfg     IntakeConfig
	jobs    ports.JobStore
	domains ports.DomainStore
	logger  *slog.Logger
	now     func() time.Time
}

// NewIntake constructs the intake use case.
func NewIntake(cfg IntakeConfig, jobs ports.JobStore, domains ports.DomainStore, logger *slog.Logger) *Intake {
	if logger == nil {
		logger = slog.Default()
	}
	return &Intake{cfg: cfg, jobs: jobs, domains: domains, logger: logger, now: time.Now}
}

// CreateJob normalizes and validates the names, schedules them starting
// tomorrow, and persists the job with its domain rows in input order. The job
// starts pending when an active slot is free, queued otherwise.
func (i *Intake) CreateJob(ctx context.Context, name string, kind domain.EnrichmentKind, names []string) (domain.Job, error) {
	if name == "" {
		return domain.Job{}, fmt.Errorf("job name is required")
	}
	if !kind.Valid() {
		return domain.Job{}, fmt.Errorf("unknown enrichment kind %q", kind)
	}
	if len(names) == 0 {
		return domain.Job{}, fmt.Errorf("no domains provided")
	}

	normalized := make([]string, len(names))
	for idx, raw := range names {
		cleaned := domain.NormalizeName(raw)
		if !domain.ValidName(cleaned) {
			return domain.Job{}, fmt.Errorf("invalid domain %q", raw)
		}
		normalized[idx] = cleaned
	}

	now := i.now()
	start := Day(now).AddDate(0, 0, 1)
	end := ScheduleEndDate(len(normalized), start, i.cfg.SchedulingDays, i.cfg.MaxDomainsPerDay)
	scheduled := ScheduleDomains(normalized, start, i.cfg.SchedulingDays, i.cfg.MaxDomainsPerDay)

	status := domain.JobPending
	activeCount, err := i.jobs.CountActive(ctx)
	if err != nil {
		return domain.Job{}, fmt.Errorf("count active jobs: %w", err)
	}
	if activeCount >= i.cfg.MaxConcurrentJobs {
		status = domain.JobQueued
	}

	job := domain.Job{
		ID:           uuid.NewString(),
		Name:         name,
		Kind:         kind,
		TotalDomains: len(normalized),
		Status:       status,
		StartDate:    start,
		EndDate:      end,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := i.jobs.Insert(ctx, job); err != nil {
		return domain.Job{}, fmt.Errorf("create job: %w", err)
	}

	rows := make([]domain.Domain, len(scheduled))
	for idx, sd := range scheduled {
		rows[idx] = domain.Domain{
			ID:            uuid.NewString(),
			JobID:         job.ID,
			Name:          sd.Name,
			ScheduledDate: sd.Date,
			Status:        domain.DomainPending,
			CreatedAt:     now,
		}
	}

	if err := i.domains.InsertBatch(ctx, rows); err != nil {
		// Do not leave a job without domains behind.
		if delErr := i.jobs.Delete(ctx, job.ID); delErr != nil {
			i.logger.Error("clean up job after domain insert failure", "job", job.ID, "error", delErr)
		}
		return domain.Job{}, fmt.Errorf("save domains: %w", err)
	}

	i.logger.Info("job created", "job", job.ID, "name", name, "kind", kind,
		"status", status, "domains", len(rows),
		"start", start.Format("2006-01-02"), "end", end.Format("2006-01-02"))
	return job, nil
}

// Stats tallies a job's domains by status for progress reporting.
func (i *Intake) Stats(ctx context.Context, jobID string) (domain.JobStats, error) {
	stats, err := i.domains.Stats(ctx, jobID)
	if err != nil {
		return domain.JobStats{}, fmt.Errorf("job %s stats: %w", jobID, err)
	}
	return stats, nil
}
