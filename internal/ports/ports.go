package ports

import (
	"context"
	"time"

	"PortfolioMonitor/internal/domain"
)

// CandidateSource pulls raw hits for one entity from an upstream provider.
// Failures are absorbed per keyword, so Fetch never returns an error.
type CandidateSource interface {
	Name() string
	Fetch(ctx context.Context, entity domain.MonitoredEntity) []domain.Candidate
}

// RelevanceClassifier decides whether a candidate is a true mention of the entity.
type RelevanceClassifier interface {
	IsRelevant(candidate domain.Candidate, entity domain.MonitoredEntity) bool
}

// SentimentScorer assigns a polarity in [-1,1] to free text.
type SentimentScorer interface {
	Score(ctx context.Context, text string) (float64, error)
}

// MentionRepository persists mentions with at-most-once insertion.
type MentionRepository interface {
	Insert(ctx context.Context, mention domain.Mention) (int64, bool, error)
	Recent(ctx context.Context, window time.Duration) ([]domain.Mention, error)
	ByEntity(ctx context.Context, name string, limit int) ([]domain.Mention, error)
	PurgeMatching(ctx context.Context, entity string, patterns []string) (int64, error)
	Statistics(ctx context.Context) (domain.Statistics, error)
}

// AlertRepository is the append-only notification audit log.
type AlertRepository interface {
	RecordAlert(ctx context.Context, mentionID int64, channel string, status domain.AlertStatus) (int64, error)
	UpdateAlertStatus(ctx context.Context, alertID int64, status domain.AlertStatus, errText string) error
}

// EntityRepository mirrors the configured entities into storage for reporting.
type EntityRepository interface {
	SyncEntities(ctx context.Context, entities []domain.MonitoredEntity) error
	Entities(ctx context.Context) ([]domain.MonitoredEntity, error)
}

// Notifier delivers a batch of new mentions over one channel (console, Telegram, Slack).
type Notifier interface {
	Channel() string
	Notify(ctx context.Context, mentions []domain.Mention) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
