package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"domainscan/internal/domain"
	"domainscan/internal/ports"
)

// MetricsStore persists enrichment results. Two tables, one per kind, both
// append-only: rows are inserted on success and never updated.
type MetricsStore struct {
	db *sql.DB
}

var _ ports.MetricsStore = (*MetricsStore)(nil)

// NewMetricsStore wires a sql.DB implementation.
func NewMetricsStore(db *sql.DB) *MetricsStore {
	return &MetricsStore{db: db}
}

// InsertTraffic appends one traffic-history record for a domain.
func (s *MetricsStore) InsertTraffic(ctx context.Context, m domain.TrafficMetrics) error {
	history, err := json.Marshal(m.History)
	if err != nil {
		return fmt.Errorf("marshal traffic history: %w", err)
	}

	query, args, err := psql.Insert("traffic_metrics").
		Columns("id", "domain_id", "traffic_history", "checked_at").
		Values(uuid.NewString(), m.DomainID, history, m.CheckedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert traffic metrics: %w", err)
	}
	return nil
}

// InsertKeywords appends one keyword record for a domain.
func (s *MetricsStore) InsertKeywords(ctx context.Context, m domain.KeywordMetrics) error {
	keywords, err := json.Marshal(m.Keywords)
	if err != nil {
		return fmt.Errorf("marshal keywords: %w", err)
	}

	query, args, err := psql.Insert("keyword_metrics").
		Columns("id", "domain_id", "keywords", "total_keywords", "total_traffic", "checked_at").
		Values(uuid.NewString(), m.DomainID, keywords, m.TotalKeywords, m.TotalTraffic, m.CheckedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert keyword metrics: %w", err)
	}
	return nil
}

// CountCheckedSince counts metrics rows of both kinds created at or after the
// given instant. The global daily counter across all enrichment kinds.
func (s *MetricsStore) CountCheckedSince(ctx context.Context, since time.Time) (int, error) {
	total := 0
	for _, table := range []string{"traffic_metrics", "keyword_metrics"} {
		query, args, err := psql.Select("count(*)").
			From(table).
			Where(sq.GtOrEq{"checked_at": since}).
			ToSql()
		if err != nil {
			return 0, fmt.Errorf("build query: %w", err)
		}

		var count int
		if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
			return 0, fmt.Errorf("count %s: %w", table, err)
		}
		total += count
	}
	return total, nil
}
