package storage

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"PortfolioMonitor/internal/domain"
)

// Dialect selects driver-specific SQL.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

// ParseDialect maps a configured driver name onto a dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pq":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownDriver, driver)
	}
}

func (d Dialect) placeholder() sq.PlaceholderFormat {
	if d == DialectPostgres {
		return sq.Dollar
	}
	return sq.Question
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS mentions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entity_name TEXT NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		link TEXT UNIQUE,
		source TEXT NOT NULL,
		published_at TIMESTAMP NULL,
		sentiment REAL NULL,
		fingerprint TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		mention_id INTEGER NULL REFERENCES mentions(id) ON DELETE SET NULL,
		channel TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		sent_at TIMESTAMP NULL,
		error TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS monitored_entities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		keywords TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		fund TEXT NOT NULL DEFAULT '',
		website TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMP NOT NULL
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS mentions (
		id BIGSERIAL PRIMARY KEY,
		entity_name TEXT NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		link TEXT UNIQUE,
		source TEXT NOT NULL,
		published_at TIMESTAMPTZ NULL,
		sentiment DOUBLE PRECISION NULL,
		fingerprint TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id BIGSERIAL PRIMARY KEY,
		mention_id BIGINT NULL REFERENCES mentions(id) ON DELETE SET NULL,
		channel TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		sent_at TIMESTAMPTZ NULL,
		error TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS monitored_entities (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		keywords TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		fund TEXT NOT NULL DEFAULT '',
		website TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}

// Both dialects accept the same index DDL.
var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_mentions_entity ON mentions(entity_name)`,
	`CREATE INDEX IF NOT EXISTS idx_mentions_source ON mentions(source)`,
	`CREATE INDEX IF NOT EXISTS idx_mentions_published ON mentions(published_at)`,
	`CREATE INDEX IF NOT EXISTS idx_mentions_fingerprint ON mentions(fingerprint)`,
	`CREATE INDEX IF NOT EXISTS idx_mentions_created ON mentions(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_mention ON alerts(mention_id)`,
}

func (d Dialect) schema() []string {
	base := sqliteSchema
	if d == DialectPostgres {
		base = postgresSchema
	}
	stmts := make([]string, 0, len(base)+len(indexes))
	stmts = append(stmts, base...)
	return append(stmts, indexes...)
}

// Migrate creates tables and indexes if they do not exist yet.
func (r *SQLRepository) Migrate(ctx context.Context) error {
	for _, stmt := range r.dialect.schema() {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
