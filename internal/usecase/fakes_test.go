package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"domainscan/internal/domain"
	"domainscan/internal/ports"
)

// In-memory stores for exercising the use cases without Postgres. They
// enforce the same transition rules as the real stores.

type memDomainStore struct {
	rows  map[string]*domain.Domain
	order []string
}

var _ ports.DomainStore = (*memDomainStore)(nil)

func newMemDomainStore() *memDomainStore {
	return &memDomainStore{rows: map[string]*domain.Domain{}}
}

func (s *memDomainStore) add(d domain.Domain) {
	copied := d
	s.rows[d.ID] = &copied
	s.order = append(s.order, d.ID)
}

func (s *memDomainStore) InsertBatch(_ context.Context, domains []domain.Domain) error {
	for _, d := range domains {
		s.add(d)
	}
	return nil
}

func (s *memDomainStore) sorted() []*domain.Domain {
	result := make([]*domain.Domain, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.rows[id])
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].ScheduledDate.Equal(result[j].ScheduledDate) {
			return result[i].ScheduledDate.Before(result[j].ScheduledDate)
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (s *memDomainStore) ListDue(_ context.Context, jobID string, today time.Time, limit int) ([]domain.Domain, error) {
	var due []domain.Domain
	for _, d := range s.sorted() {
		if d.JobID != jobID || !d.Eligible(today) {
			continue
		}
		due = append(due, *d)
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

func (s *memDomainStore) CountDue(_ context.Context, jobID string, today time.Time) (int, error) {
	count := 0
	for _, d := range s.rows {
		if d.JobID == jobID && d.Eligible(today) {
			count++
		}
	}
	return count, nil
}

func (s *memDomainStore) ListByStatus(_ context.Context, status domain.DomainStatus) ([]domain.Domain, error) {
	var result []domain.Domain
	for _, id := range s.order {
		if s.rows[id].Status == status {
			result = append(result, *s.rows[id])
		}
	}
	return result, nil
}

func (s *memDomainStore) SetStatus(_ context.Context, id string, status domain.DomainStatus) error {
	d, ok := s.rows[id]
	if !ok {
		return fmt.Errorf("domain %s not found", id)
	}
	if err := domain.CheckTransition(d.Status, status); err != nil {
		return err
	}
	d.Status = status
	return nil
}

func (s *memDomainStore) MarkFailure(_ context.Context, id string, status domain.DomainStatus, retryCount int, message string) error {
	d, ok := s.rows[id]
	if !ok {
		return fmt.Errorf("domain %s not found", id)
	}
	if err := domain.CheckTransition(d.Status, status); err != nil {
		return err
	}
	d.Status = status
	d.RetryCount = retryCount
	d.ErrorMessage = message
	return nil
}

func (s *memDomainStore) ResetProcessing(_ context.Context) (int, error) {
	count := 0
	for _, d := range s.rows {
		if d.Status == domain.DomainProcessing {
			d.Status = domain.DomainPending
			count++
		}
	}
	return count, nil
}

func (s *memDomainStore) Stats(_ context.Context, jobID string) (domain.JobStats, error) {
	var stats domain.JobStats
	for _, d := range s.rows {
		if d.JobID != jobID {
			continue
		}
		switch d.Status {
		case domain.DomainPending:
			stats.Pending++
		case domain.DomainProcessing:
			stats.Processing++
		case domain.DomainCompleted:
			stats.Completed++
		case domain.DomainFailed:
			stats.Failed++
		}
		stats.Total++
	}
	return stats, nil
}

type memJobStore struct {
	rows  map[string]*domain.Job
	order []string
}

var _ ports.JobStore = (*memJobStore)(nil)

func newMemJobStore() *memJobStore {
	return &memJobStore{rows: map[string]*domain.Job{}}
}

func (s *memJobStore) add(job domain.Job) {
	copied := job
	s.rows[job.ID] = &copied
	s.order = append(s.order, job.ID)
}

func (s *memJobStore) Insert(_ context.Context, job domain.Job) error {
	s.add(job)
	return nil
}

func (s *memJobStore) Get(_ context.Context, id string) (domain.Job, error) {
	job, ok := s.rows[id]
	if !ok {
		return domain.Job{}, fmt.Errorf("job %s not found", id)
	}
	return *job, nil
}

func (s *memJobStore) byCreation() []*domain.Job {
	result := make([]*domain.Job, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.rows[id])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (s *memJobStore) ListActive(_ context.Context, limit int) ([]domain.Job, error) {
	var active []domain.Job
	for _, job := range s.byCreation() {
		if job.Status != domain.JobPending && job.Status != domain.JobRunning {
			continue
		}
		active = append(active, *job)
		if len(active) == limit {
			break
		}
	}
	return active, nil
}

func (s *memJobStore) CountActive(_ context.Context) (int, error) {
	count := 0
	for _, job := range s.rows {
		if job.Status == domain.JobPending || job.Status == domain.JobRunning {
			count++
		}
	}
	return count, nil
}

func (s *memJobStore) ListQueued(_ context.Context, limit int) ([]domain.Job, error) {
	var queued []domain.Job
	for _, job := range s.byCreation() {
		if job.Status != domain.JobQueued {
			continue
		}
		queued = append(queued, *job)
		if len(queued) == limit {
			break
		}
	}
	return queued, nil
}

func (s *memJobStore) SetStatus(_ context.Context, id string, status domain.JobStatus) error {
	job, ok := s.rows[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	if !job.Status.CanTransition(status) {
		return fmt.Errorf("job %s -> %s: %w", job.Status, status, domain.ErrInvalidTransition)
	}
	job.Status = status
	return nil
}

func (s *memJobStore) Delete(_ context.Context, id string) error {
	delete(s.rows, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

type memMetricsStore struct {
	traffic  []domain.TrafficMetrics
	keywords []domain.KeywordMetrics
	checked  []time.Time
}

var _ ports.MetricsStore = (*memMetricsStore)(nil)

func (s *memMetricsStore) InsertTraffic(_ context.Context, m domain.TrafficMetrics) error {
	s.traffic = append(s.traffic, m)
	s.checked = append(s.checked, m.CheckedAt)
	return nil
}

func (s *memMetricsStore) InsertKeywords(_ context.Context, m domain.KeywordMetrics) error {
	s.keywords = append(s.keywords, m)
	s.checked = append(s.checked, m.CheckedAt)
	return nil
}

func (s *memMetricsStore) CountCheckedSince(_ context.Context, since time.Time) (int, error) {
	count := 0
	for _, at := range s.checked {
		if !at.Before(since) {
			count++
		}
	}
	return count, nil
}

type fakeLease struct {
	held     bool
	acquired []string
	released []string
}

var _ ports.Lease = (*fakeLease)(nil)

func (l *fakeLease) Acquire(_ context.Context, holder string, _ time.Duration) (bool, error) {
	if l.held {
		return false, nil
	}
	l.acquired = append(l.acquired, holder)
	return true, nil
}

func (l *fakeLease) Release(_ context.Context, holder string) error {
	l.released = append(l.released, holder)
	return nil
}

// stubEnricher succeeds unless the domain name has failures scripted;
// each call for a scripted name consumes one failure.
type stubEnricher struct {
	kind      domain.EnrichmentKind
	failures  map[string]int
	processed []string
}

func (e *stubEnricher) Kind() domain.EnrichmentKind { return e.kind }

func (e *stubEnricher) Enrich(_ context.Context, d domain.Domain) error {
	e.processed = append(e.processed, d.Name)
	if e.failures[d.Name] > 0 {
		e.failures[d.Name]--
		return fmt.Errorf("upstream error for %s", d.Name)
	}
	return nil
}
