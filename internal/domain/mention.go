package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrAlertNotPending is returned when an alert is asked to leave a non-pending status.
	ErrAlertNotPending = errors.New("alert is not pending")
	// ErrEntityNotFound signals an unknown monitored entity name.
	ErrEntityNotFound = errors.New("monitored entity not found")
	// ErrUnknownDriver signals an unsupported storage driver.
	ErrUnknownDriver = errors.New("unknown storage driver")
)

// MonitoredEntity is a company tracked by the monitor. Loaded from configuration, read-only afterwards.
type MonitoredEntity struct {
	Name        string
	Keywords    []string
	Description string
	Fund        string
	Website     string
}

// Candidate is a raw hit returned by a source before classification.
type Candidate struct {
	Title        string
	Snippet      string
	Link         string
	Source       string
	PublishedRaw string
	PublishedAt  time.Time
}

// Text joins title and snippet the way the classifier and scorer consume it.
func (c Candidate) Text() string {
	return strings.TrimSpace(c.Title + " " + c.Snippet)
}

// Mention is an accepted candidate attributed to a monitored entity.
type Mention struct {
	ID          int64
	Entity      string
	Title       string
	Content     string
	Link        string
	Source      string
	PublishedAt time.Time
	Sentiment   *float64
	Fingerprint string
	CreatedAt   time.Time
}

// NewMention builds a mention from an accepted candidate. The fingerprint is always derived here.
func NewMention(c Candidate, entity string, sentiment *float64) Mention {
	published := c.PublishedAt
	if published.IsZero() {
		published = ParsePublished(c.PublishedRaw)
	}

	return Mention{
		Entity:      entity,
		Title:       strings.TrimSpace(c.Title),
		Content:     strings.TrimSpace(c.Snippet),
		Link:        strings.TrimSpace(c.Link),
		Source:      c.Source,
		PublishedAt: published,
		Sentiment:   sentiment,
		Fingerprint: Fingerprint(strings.TrimSpace(c.Title), strings.TrimSpace(c.Link), entity),
	}
}

// AlertStatus enumerates notification attempt states.
type AlertStatus string

const (
	AlertPending AlertStatus = "pending"
	AlertSent    AlertStatus = "sent"
	AlertFailed  AlertStatus = "failed"
)

// Valid reports whether s is a known status.
func (s AlertStatus) Valid() bool {
	switch s {
	case AlertPending, AlertSent, AlertFailed:
		return true
	default:
		return false
	}
}

// AlertRecord is one notification attempt of a mention over a channel.
type AlertRecord struct {
	ID        int64
	MentionID int64
	Channel   string
	Status    AlertStatus
	CreatedAt time.Time
	SentAt    time.Time
	Error     string
}

// Statistics aggregates stored mentions for reporting.
type Statistics struct {
	Total            int                `json:"total"`
	Recent           int                `json:"recent"`
	RecentWindow     time.Duration      `json:"recent_window"`
	ByEntity         map[string]int     `json:"by_entity"`
	BySource         map[string]int     `json:"by_source"`
	AverageSentiment map[string]float64 `json:"average_sentiment"`
}

// SentimentLabel buckets a polarity score.
func SentimentLabel(score float64) string {
	switch {
	case score > 0.3:
		return "positive"
	case score < -0.3:
		return "negative"
	default:
		return "neutral"
	}
}
