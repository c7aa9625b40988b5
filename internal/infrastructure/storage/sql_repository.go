package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"PortfolioMonitor/internal/domain"
	"PortfolioMonitor/internal/ports"
)

const (
	defaultStatsWindow = 24 * time.Hour
	sqliteParams       = "_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
)

var mentionColumns = []string{
	"id", "entity_name", "title", "content", "link", "source",
	"published_at", "sentiment", "fingerprint", "created_at",
}

// SQLRepository persists mentions, alerts and entities in SQLite or Postgres.
type SQLRepository struct {
	db          *sql.DB
	dialect     Dialect
	qb          sq.StatementBuilderType
	now         func() time.Time
	statsWindow time.Duration
}

var (
	_ ports.MentionRepository = (*SQLRepository)(nil)
	_ ports.AlertRepository   = (*SQLRepository)(nil)
	_ ports.EntityRepository  = (*SQLRepository)(nil)
)

// NewSQLRepository wires an already opened sql.DB.
func NewSQLRepository(db *sql.DB, dialect Dialect) *SQLRepository {
	return &SQLRepository{
		db:          db,
		dialect:     dialect,
		qb:          sq.StatementBuilder.PlaceholderFormat(dialect.placeholder()),
		now:         time.Now,
		statsWindow: defaultStatsWindow,
	}
}

// Open connects to the configured database, applies the schema and returns the repository.
// SQLite runs on a single connection so every write goes through one writer.
func Open(ctx context.Context, driver, dsn string) (*SQLRepository, error) {
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("open %s: empty database url", dialect)
	}
	if dialect == DialectSQLite {
		dsn = sqliteDSN(dsn)
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}

	repo := NewSQLRepository(db, dialect)
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func sqliteDSN(dsn string) string {
	dsn = strings.TrimPrefix(dsn, "sqlite:///")
	dsn = strings.TrimPrefix(dsn, "sqlite://")
	if strings.Contains(dsn, "?") {
		return dsn
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	return dsn + "?" + sqliteParams
}

// WithClock overrides the time source used for created_at and recency windows.
func (r *SQLRepository) WithClock(now func() time.Time) *SQLRepository {
	r.now = now
	return r
}

// WithStatsWindow sets the trailing window behind Statistics.Recent.
func (r *SQLRepository) WithStatsWindow(window time.Duration) *SQLRepository {
	if window > 0 {
		r.statsWindow = window
	}
	return r
}

// Close releases the database handle.
func (r *SQLRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Ping checks connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Insert stores the mention unless its fingerprint or link is already present.
// A duplicate yields (0, false, nil).
func (r *SQLRepository) Insert(ctx context.Context, m domain.Mention) (int64, bool, error) {
	fingerprint := domain.Fingerprint(m.Title, m.Link, m.Entity)

	query, args, err := r.qb.Insert("mentions").
		Columns(mentionColumns[1:]...).
		Values(
			m.Entity,
			m.Title,
			m.Content,
			nullString(m.Link),
			m.Source,
			nullTime(m.PublishedAt),
			nullFloat(m.Sentiment),
			fingerprint,
			r.now().UTC(),
		).
		Suffix("ON CONFLICT DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return 0, false, fmt.Errorf("build insert: %w", err)
	}

	var id int64
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, false, nil
	case err != nil && isUniqueViolation(err):
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("insert mention: %w", err)
	}

	return id, true, nil
}

// Recent returns mentions stored within the trailing window, newest first.
func (r *SQLRepository) Recent(ctx context.Context, window time.Duration) ([]domain.Mention, error) {
	cutoff := r.now().UTC().Add(-window)
	return r.queryMentions(ctx, r.qb.Select(mentionColumns...).
		From("mentions").
		Where(sq.GtOrEq{"created_at": cutoff}).
		OrderBy("created_at DESC", "id DESC"))
}

// ByEntity returns up to limit mentions of one entity, newest first.
func (r *SQLRepository) ByEntity(ctx context.Context, name string, limit int) ([]domain.Mention, error) {
	builder := r.qb.Select(mentionColumns...).
		From("mentions").
		Where(sq.Eq{"entity_name": name}).
		OrderBy("created_at DESC", "id DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	return r.queryMentions(ctx, builder)
}

// PurgeMatching deletes the entity's mentions whose title or content contains any pattern, case-insensitively.
func (r *SQLRepository) PurgeMatching(ctx context.Context, entity string, patterns []string) (int64, error) {
	var conds sq.Or
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		like := "%" + escapeLike(p) + "%"
		conds = append(conds,
			sq.Expr(`LOWER(title) LIKE ? ESCAPE '\'`, like),
			sq.Expr(`LOWER(content) LIKE ? ESCAPE '\'`, like),
		)
	}
	if len(conds) == 0 {
		return 0, nil
	}

	query, args, err := r.qb.Delete("mentions").
		Where(sq.Eq{"entity_name": entity}).
		Where(conds).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build purge: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("purge mentions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge rows affected: %w", err)
	}
	return n, nil
}

// RecordAlert appends an alert row and returns its id.
func (r *SQLRepository) RecordAlert(ctx context.Context, mentionID int64, channel string, status domain.AlertStatus) (int64, error) {
	if !status.Valid() {
		return 0, fmt.Errorf("record alert: invalid status %q", status)
	}

	now := r.now().UTC()
	var sentAt any
	if status == domain.AlertSent {
		sentAt = now
	}

	query, args, err := r.qb.Insert("alerts").
		Columns("mention_id", "channel", "status", "created_at", "sent_at").
		Values(mentionID, channel, string(status), now, sentAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build alert insert: %w", err)
	}

	var id int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert alert: %w", err)
	}
	return id, nil
}

// UpdateAlertStatus moves a pending alert to sent or failed.
func (r *SQLRepository) UpdateAlertStatus(ctx context.Context, alertID int64, status domain.AlertStatus, errText string) error {
	if status != domain.AlertSent && status != domain.AlertFailed {
		return fmt.Errorf("update alert %d: invalid target status %q", alertID, status)
	}

	update := r.qb.Update("alerts").
		Set("status", string(status)).
		Set("error", errText).
		Where(sq.Eq{"id": alertID, "status": string(domain.AlertPending)})
	if status == domain.AlertSent {
		update = update.Set("sent_at", r.now().UTC())
	}

	query, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("build alert update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update alert %d: %w", alertID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update alert rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update alert %d: %w", alertID, domain.ErrAlertNotPending)
	}
	return nil
}

// AlertsForMention lists every alert attempt of a mention, oldest first.
func (r *SQLRepository) AlertsForMention(ctx context.Context, mentionID int64) ([]domain.AlertRecord, error) {
	query, args, err := r.qb.Select("id", "mention_id", "channel", "status", "created_at", "sent_at", "error").
		From("alerts").
		Where(sq.Eq{"mention_id": mentionID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build alert query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var out []domain.AlertRecord
	for rows.Next() {
		var (
			rec       domain.AlertRecord
			mention   sql.NullInt64
			status    string
			sentAt    sql.NullTime
			createdAt time.Time
		)
		if err := rows.Scan(&rec.ID, &mention, &rec.Channel, &status, &createdAt, &sentAt, &rec.Error); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		rec.MentionID = mention.Int64
		rec.Status = domain.AlertStatus(status)
		rec.CreatedAt = createdAt.UTC()
		if sentAt.Valid {
			rec.SentAt = sentAt.Time.UTC()
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("alert rows: %w", err)
	}
	return out, nil
}

// Statistics aggregates totals, the recent count and per-entity/per-source breakdowns.
func (r *SQLRepository) Statistics(ctx context.Context) (domain.Statistics, error) {
	stats := domain.Statistics{
		RecentWindow:     r.statsWindow,
		ByEntity:         map[string]int{},
		BySource:         map[string]int{},
		AverageSentiment: map[string]float64{},
	}

	if err := r.scalar(ctx, r.qb.Select("COUNT(*)").From("mentions"), &stats.Total); err != nil {
		return stats, err
	}
	cutoff := r.now().UTC().Add(-r.statsWindow)
	recent := r.qb.Select("COUNT(*)").From("mentions").Where(sq.GtOrEq{"created_at": cutoff})
	if err := r.scalar(ctx, recent, &stats.Recent); err != nil {
		return stats, err
	}

	if err := r.groupCount(ctx, "entity_name", stats.ByEntity); err != nil {
		return stats, err
	}
	if err := r.groupCount(ctx, "source", stats.BySource); err != nil {
		return stats, err
	}

	query, args, err := r.qb.Select("entity_name", "AVG(sentiment)").
		From("mentions").
		Where(sq.NotEq{"sentiment": nil}).
		GroupBy("entity_name").
		ToSql()
	if err != nil {
		return stats, fmt.Errorf("build sentiment query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return stats, fmt.Errorf("query sentiment: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			name string
			avg  sql.NullFloat64
		)
		if err := rows.Scan(&name, &avg); err != nil {
			return stats, fmt.Errorf("scan sentiment: %w", err)
		}
		if avg.Valid {
			stats.AverageSentiment[name] = avg.Float64
		}
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("sentiment rows: %w", err)
	}

	return stats, nil
}

// SyncEntities upserts the configured entities so reporting can list them.
func (r *SQLRepository) SyncEntities(ctx context.Context, entities []domain.MonitoredEntity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin entity sync: %w", err)
	}

	now := r.now().UTC()
	for _, e := range entities {
		query, args, err := r.qb.Insert("monitored_entities").
			Columns("name", "keywords", "description", "fund", "website", "updated_at").
			Values(e.Name, strings.Join(e.Keywords, ","), e.Description, e.Fund, e.Website, now).
			Suffix(`ON CONFLICT (name) DO UPDATE SET
				keywords = excluded.keywords,
				description = excluded.description,
				fund = excluded.fund,
				website = excluded.website,
				updated_at = excluded.updated_at`).
			ToSql()
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("build entity upsert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert entity %s: %w", e.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit entity sync: %w", err)
	}
	return nil
}

// Entities lists stored entities ordered by name.
func (r *SQLRepository) Entities(ctx context.Context) ([]domain.MonitoredEntity, error) {
	query, args, err := r.qb.Select("name", "keywords", "description", "fund", "website").
		From("monitored_entities").
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build entity query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	var out []domain.MonitoredEntity
	for rows.Next() {
		var (
			e        domain.MonitoredEntity
			keywords string
		)
		if err := rows.Scan(&e.Name, &keywords, &e.Description, &e.Fund, &e.Website); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		if keywords != "" {
			e.Keywords = strings.Split(keywords, ",")
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("entity rows: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) queryMentions(ctx context.Context, builder sq.SelectBuilder) ([]domain.Mention, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build mention query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query mentions: %w", err)
	}

	var out []domain.Mention
	for rows.Next() {
		var (
			m         domain.Mention
			link      sql.NullString
			published sql.NullTime
			sentiment sql.NullFloat64
			createdAt time.Time
		)
		if err := rows.Scan(&m.ID, &m.Entity, &m.Title, &m.Content, &link, &m.Source,
			&published, &sentiment, &m.Fingerprint, &createdAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan mention: %w", err)
		}
		m.Link = link.String
		if published.Valid {
			m.PublishedAt = published.Time.UTC()
		}
		if sentiment.Valid {
			score := sentiment.Float64
			m.Sentiment = &score
		}
		m.CreatedAt = createdAt.UTC()
		out = append(out, m)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("mention rows: %w", rowsErr)
	}
	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}
	return out, nil
}

func (r *SQLRepository) scalar(ctx context.Context, builder sq.SelectBuilder, dst *int) error {
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build count: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(dst); err != nil {
		return fmt.Errorf("count: %w", err)
	}
	return nil
}

func (r *SQLRepository) groupCount(ctx context.Context, column string, dst map[string]int) error {
	query, args, err := r.qb.Select(column, "COUNT(*)").From("mentions").GroupBy(column).ToSql()
	if err != nil {
		return fmt.Errorf("build group count: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("group by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key   string
			count int
		)
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("scan %s count: %w", column, err)
		}
		dst[key] = count
	}
	return rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t.UTC(), Valid: !t.IsZero()}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
