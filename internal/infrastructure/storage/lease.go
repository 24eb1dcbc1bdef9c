package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"domainscan/internal/ports"
)

// Lease is a single advisory lock row with holder and expiry. It keeps two
// batch invocations from selecting and processing the same domains when the
// external trigger misfires and overlaps runs.
type Lease struct {
	db *sql.DB
}

var _ ports.Lease = (*Lease)(nil)

// NewLease wires a sql.DB implementation.
func NewLease(db *sql.DB) *Lease {
	return &Lease{db: db}
}

// Acquire takes the lease when it is free, expired, or already owned by the
// same holder. Returns false without error when another holder owns an
// unexpired lease.
func (l *Lease) Acquire(ctx context.Context, holder string, ttl time.Duration) (bool, error) {
	expires := time.Now().Add(ttl)

	query, args, err := psql.Insert("scan_lease").
		Columns("id", "holder", "expires_at").
		Values(1, holder, expires).
		Suffix(`ON CONFLICT (id) DO UPDATE
			SET holder = EXCLUDED.holder, expires_at = EXCLUDED.expires_at
			WHERE scan_lease.expires_at <= NOW() OR scan_lease.holder = EXCLUDED.holder`).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build upsert: %w", err)
	}

	res, err := l.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("acquire lease: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("lease rows affected: %w", err)
	}
	return n == 1, nil
}

// Release expires the lease if the holder still owns it.
func (l *Lease) Release(ctx context.Context, holder string) error {
	query, args, err := psql.Update("scan_lease").
		Set("expires_at", sq.Expr("NOW()")).
		Where(sq.Eq{"holder": holder}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	return nil
}
