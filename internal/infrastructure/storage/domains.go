package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"domainscan/internal/domain"
	"domainscan/internal/ports"
)

// ErrNotFound is returned when a row lookup by id matches nothing.
var ErrNotFound = errors.New("record not found")

var domainColumns = []string{
	"id", "job_id", "domain", "scheduled_date", "status",
	"retry_count", "coalesce(error_message, '')", "created_at",
}

// DomainStore persists domain records in the domains table.
type DomainStore struct {
	db *sql.DB
}

var _ ports.DomainStore = (*DomainStore)(nil)

// NewDomainStore wires a sql.DB implementation.
func NewDomainStore(db *sql.DB) *DomainStore {
	return &DomainStore{db: db}
}

// InsertBatch saves the initial pending rows for a job in input order.
func (s *DomainStore) InsertBatch(ctx context.Context, domains []domain.Domain) error {
	if len(domains) == 0 {
		return nil
	}

	builder := psql.Insert("domains").
		Columns("id", "job_id", "domain", "scheduled_date", "status", "retry_count", "created_at")
	for _, d := range domains {
		builder = builder.Values(d.ID, d.JobID, d.Name, d.ScheduledDate, d.Status, d.RetryCount, d.CreatedAt)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert domains: %w", err)
	}
	return nil
}

// ListDue returns up to limit eligible domains for the job: pending, due on
// or before today, oldest scheduled first with insertion order as tie-break.
func (s *DomainStore) ListDue(ctx context.Context, jobID string, today time.Time, limit int) ([]domain.Domain, error) {
	query, args, err := psql.Select(domainColumns...).
		From("domains").
		Where(sq.Eq{"job_id": jobID, "status": domain.DomainPending}).
		Where(sq.LtOrEq{"scheduled_date": today}).
		OrderBy("scheduled_date ASC", "created_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return s.queryDomains(ctx, query, args...)
}

// CountDue counts the job's currently-eligible pending domains.
func (s *DomainStore) CountDue(ctx context.Context, jobID string, today time.Time) (int, error) {
	query, args, err := psql.Select("count(*)").
		From("domains").
		Where(sq.Eq{"job_id": jobID, "status": domain.DomainPending}).
		Where(sq.LtOrEq{"scheduled_date": today}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count due domains: %w", err)
	}
	return count, nil
}

// ListByStatus returns every domain in the given status, oldest first.
func (s *DomainStore) ListByStatus(ctx context.Context, status domain.DomainStatus) ([]domain.Domain, error) {
	query, args, err := psql.Select(domainColumns...).
		From("domains").
		Where(sq.Eq{"status": status}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return s.queryDomains(ctx, query, args...)
}

// SetStatus validates the transition against the stored status, then applies
// it as a conditional single-row update.
func (s *DomainStore) SetStatus(ctx context.Context, id string, status domain.DomainStatus) error {
	current, err := s.getStatus(ctx, id)
	if err != nil {
		return err
	}
	if err := domain.CheckTransition(current, status); err != nil {
		return err
	}

	query, args, err := psql.Update("domains").
		Set("status", status).
		Where(sq.Eq{"id": id, "status": current}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update domain status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("domain %s changed concurrently", id)
	}
	return nil
}

// MarkFailure records a failed attempt in one conditional write: status,
// retry count, and last error message.
func (s *DomainStore) MarkFailure(ctx context.Context, id string, status domain.DomainStatus, retryCount int, message string) error {
	current, err := s.getStatus(ctx, id)
	if err != nil {
		return err
	}
	if err := domain.CheckTransition(current, status); err != nil {
		return err
	}

	query, args, err := psql.Update("domains").
		Set("status", status).
		Set("retry_count", retryCount).
		Set("error_message", message).
		Where(sq.Eq{"id": id, "status": current}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("record domain failure: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("domain %s changed concurrently", id)
	}
	return nil
}

// ResetProcessing returns every processing domain to pending. Recovery for
// runs that died mid-batch; safe while the invocation lease is held.
func (s *DomainStore) ResetProcessing(ctx context.Context) (int, error) {
	query, args, err := psql.Update("domains").
		Set("status", domain.DomainPending).
		Where(sq.Eq{"status": domain.DomainProcessing}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reset processing domains: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Stats tallies the job's domains by status.
func (s *DomainStore) Stats(ctx context.Context, jobID string) (domain.JobStats, error) {
	query, args, err := psql.Select("status", "count(*)").
		From("domains").
		Where(sq.Eq{"job_id": jobID}).
		GroupBy("status").
		ToSql()
	if err != nil {
		return domain.JobStats{}, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.JobStats{}, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	var stats domain.JobStats
	for rows.Next() {
		var status domain.DomainStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return domain.JobStats{}, fmt.Errorf("scan stats row: %w", err)
		}
		switch status {
		case domain.DomainPending:
			stats.Pending = count
		case domain.DomainProcessing:
			stats.Processing = count
		case domain.DomainCompleted:
			stats.Completed = count
		case domain.DomainFailed:
			stats.Failed = count
		}
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return domain.JobStats{}, fmt.Errorf("stats rows: %w", err)
	}
	return stats, nil
}

func (s *DomainStore) getStatus(ctx context.Context, id string) (domain.DomainStatus, error) {
	query, args, err := psql.Select("status").From("domains").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return "", fmt.Errorf("build query: %w", err)
	}

	var status domain.DomainStatus
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("domain %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("load domain status: %w", err)
	}
	return status, nil
}

func (s *DomainStore) queryDomains(ctx context.Context, query string, args ...any) ([]domain.Domain, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query domains: %w", err)
	}
	defer rows.Close()

	var result []domain.Domain
	for rows.Next() {
		var d domain.Domain
		err := rows.Scan(&d.ID, &d.JobID, &d.Name, &d.ScheduledDate,
			&d.Status, &d.RetryCount, &d.ErrorMessage, &d.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan domain row: %w", err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("domain rows: %w", err)
	}
	return result, nil
}
