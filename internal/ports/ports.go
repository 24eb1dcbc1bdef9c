package ports

import (
	"context"
	"errors"
	"time"

	"domainscan/internal/domain"
)

// Upstream fetch failure taxonomy. Every kind consumes the same retry budget;
// the distinction exists for logs and error messages, not for backoff.
var (
	ErrRateLimited = errors.New("upstream rate limited")
	ErrAuth        = errors.New("upstream authentication failed")
	ErrForbidden   = errors.New("upstream access denied")
)

// DomainStore persists per-domain processing state.
type DomainStore interface {
	InsertBatch(ctx context.Context, domains []domain.Domain) error
	ListDue(ctx context.Context, jobID string, today time.Time, limit int) ([]domain.Domain, error)
	CountDue(ctx context.Context, jobID string, today time.Time) (int, error)
	ListByStatus(ctx context.Context, status domain.DomainStatus) ([]domain.Domain, error)
	// SetStatus performs a conditional single-row update; it fails with
	// domain.ErrInvalidTransition when the stored status cannot move to the
	// requested one.
	SetStatus(ctx context.Context, id string, status domain.DomainStatus) error
	// MarkFailure records a failed attempt: bumps retry_count, stores the
	// error message, and moves the domain to the given status (pending for a
	// retry, failed when the ceiling is reached).
	MarkFailure(ctx context.Context, id string, status domain.DomainStatus, retryCount int, message string) error
	// ResetProcessing returns every processing domain to pending and reports
	// how many were recovered.
	ResetProcessing(ctx context.Context) (int, error)
	Stats(ctx context.Context, jobID string) (domain.JobStats, error)
}

// JobStore persists job records and their lifecycle status.
type JobStore interface {
	Insert(ctx context.Context, job domain.Job) error
	Get(ctx context.Context, id string) (domain.Job, error)
	// ListActive returns jobs in pending or running status, oldest first.
	ListActive(ctx context.Context, limit int) ([]domain.Job, error)
	CountActive(ctx context.Context) (int, error)
	// ListQueued returns queued jobs, oldest first.
	ListQueued(ctx context.Context, limit int) ([]domain.Job, error)
	SetStatus(ctx context.Context, id string, status domain.JobStatus) error
	// Delete removes a job and, via the schema's cascade, its domains.
	Delete(ctx context.Context, id string) error
}

// MetricsStore persists enrichment results. Append-only: records are created
// once per successful processing and never updated.
type MetricsStore interface {
	InsertTraffic(ctx context.Context, m domain.TrafficMetrics) error
	InsertKeywords(ctx context.Context, m domain.KeywordMetrics) error
	// CountCheckedSince counts metrics records of every kind created at or
	// after the given instant. Drives the daily scrape budget.
	CountCheckedSince(ctx context.Context, since time.Time) (int, error)
}

// MetricsFetcher pulls enrichment data for one domain from the upstream API.
// Implementations fail with ErrRateLimited, ErrAuth, ErrForbidden, or a
// generic error.
type MetricsFetcher interface {
	FetchTraffic(ctx context.Context, name string) ([]domain.TrafficPoint, error)
	FetchKeywords(ctx context.Context, name string) ([]domain.KeywordEntry, error)
}

// Lease guards against overlapping batch invocations. A single advisory row
// with holder and expiry; Acquire reports false when another holder owns an
// unexpired lease.
type Lease interface {
	Acquire(ctx context.Context, holder string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, holder string) error
}

// Scheduler controls when batch invocations execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
