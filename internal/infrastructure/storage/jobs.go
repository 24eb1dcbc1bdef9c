package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"domainscan/internal/domain"
	"domainscan/internal/ports"
)

var jobColumns = []string{
	"id", "name", "enrichment_kind", "total_domains", "status",
	"start_date", "end_date", "created_at", "updated_at",
}

// JobStore persists job records in the scan_jobs table.
type JobStore struct {
	db *sql.DB
}

var _ ports.JobStore = (*JobStore)(nil)

// NewJobStore wires a sql.DB implementation.
func NewJobStore(db *sql.DB) *JobStore {
	return &JobStore{db: db}
}

// Insert saves a freshly created job.
func (s *JobStore) Insert(ctx context.Context, job domain.Job) error {
	query, args, err := psql.Insert("scan_jobs").
		Columns(jobColumns...).
		Values(job.ID, job.Name, job.Kind, job.TotalDomains, job.Status,
			job.StartDate, job.EndDate, job.CreatedAt, job.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Get loads one job by id.
func (s *JobStore) Get(ctx context.Context, id string) (domain.Job, error) {
	query, args, err := psql.Select(jobColumns...).
		From("scan_jobs").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Job{}, fmt.Errorf("build query: %w", err)
	}

	job, err := s.scanJob(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Job{}, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.Job{}, fmt.Errorf("load job: %w", err)
	}
	return job, nil
}

// ListActive returns pending or running jobs, oldest created first.
func (s *JobStore) ListActive(ctx context.Context, limit int) ([]domain.Job, error) {
	query, args, err := psql.Select(jobColumns...).
		From("scan_jobs").
		Where(sq.Eq{"status": []domain.JobStatus{domain.JobPending, domain.JobRunning}}).
		OrderBy("created_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return s.queryJobs(ctx, query, args...)
}

// CountActive counts pending or running jobs.
func (s *JobStore) CountActive(ctx context.Context) (int, error) {
	query, args, err := psql.Select("count(*)").
		From("scan_jobs").
		Where(sq.Eq{"status": []domain.JobStatus{domain.JobPending, domain.JobRunning}}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active jobs: %w", err)
	}
	return count, nil
}

// ListQueued returns queued jobs, oldest created first.
func (s *JobStore) ListQueued(ctx context.Context, limit int) ([]domain.Job, error) {
	query, args, err := psql.Select(jobColumns...).
		From("scan_jobs").
		Where(sq.Eq{"status": domain.JobQueued}).
		OrderBy("created_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return s.queryJobs(ctx, query, args...)
}

// SetStatus validates the transition against the stored status, then applies
// it as a conditional single-row update bumping updated_at.
func (s *JobStore) SetStatus(ctx context.Context, id string, status domain.JobStatus) error {
	current, err := s.getStatus(ctx, id)
	if err != nil {
		return err
	}
	if !current.CanTransition(status) {
		return fmt.Errorf("job %s -> %s: %w", current, status, domain.ErrInvalidTransition)
	}

	query, args, err := psql.Update("scan_jobs").
		Set("status", status).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id, "status": current}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("job %s changed concurrently", id)
	}
	return nil
}

// Delete removes a job; the schema cascades to its domains and metrics.
func (s *JobStore) Delete(ctx context.Context, id string) error {
	query, args, err := psql.Delete("scan_jobs").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return nil
}

func (s *JobStore) getStatus(ctx context.Context, id string) (domain.JobStatus, error) {
	query, args, err := psql.Select("status").From("scan_jobs").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return "", fmt.Errorf("build query: %w", err)
	}

	var status domain.JobStatus
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("load job status: %w", err)
	}
	return status, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *JobStore) scanJob(row rowScanner) (domain.Job, error) {
	var job domain.Job
	err := row.Scan(&job.ID, &job.Name, &job.Kind, &job.TotalDomains, &job.Status,
		&job.StartDate, &job.EndDate, &job.CreatedAt, &job.UpdatedAt)
	return job, err
}

func (s *JobStore) queryJobs(ctx context.Context, query string, args ...any) ([]domain.Job, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var result []domain.Job
	for rows.Next() {
		job, err := s.scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		result = append(result, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("job rows: %w", err)
	}
	return result, nil
}
