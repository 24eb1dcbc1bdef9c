// Package storage implements the Postgres-backed stores. Every status write
// is a conditional single-row update validated against the entity's
// transition table before it is issued.
package storage

import (
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	// Registers the postgres driver.
	_ "github.com/lib/pq"
)

// psql builds queries with $N placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Open connects to Postgres and verifies the connection.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}
