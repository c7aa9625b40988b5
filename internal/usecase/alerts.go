package usecase

import (
	"context"
	"log/slog"

	"PortfolioMonitor/internal/domain"
	"PortfolioMonitor/internal/metrics"
	"PortfolioMonitor/internal/ports"
)

// ChannelResult reports one notifier's outcome for a batch.
type ChannelResult struct {
	Channel   string
	Delivered int
	Err       error
}

// AlertService hands new mentions to every notifier and keeps the alert audit log.
type AlertService struct {
	repo      ports.AlertRepository
	notifiers []ports.Notifier
	logger    *slog.Logger
}

// NewAlertService wires notifiers with the audit repository; repo may be nil.
func NewAlertService(repo ports.AlertRepository, notifiers []ports.Notifier, log *slog.Logger) *AlertService {
	return &AlertService{repo: repo, notifiers: notifiers, logger: log}
}

// Channels lists the configured notifier channels.
func (s *AlertService) Channels() []string {
	out := make([]string, 0, len(s.notifiers))
	for _, n := range s.notifiers {
		out = append(out, n.Channel())
	}
	return out
}

// Dispatch records a pending alert per mention and channel, delivers the batch and
// settles each alert as sent or failed. Delivery failures are returned, never raised.
func (s *AlertService) Dispatch(ctx context.Context, mentions []domain.Mention) []ChannelResult {
	if len(mentions) == 0 || len(s.notifiers) == 0 {
		return nil
	}

	results := make([]ChannelResult, 0, len(s.notifiers))
	for _, n := range s.notifiers {
		channel := n.Channel()
		alertIDs := s.recordPending(ctx, channel, mentions)

		err := n.Notify(ctx, mentions)
		status, errText := domain.AlertSent, ""
		if err != nil {
			status, errText = domain.AlertFailed, err.Error()
			s.warn("notification failed", "channel", channel, "mentions", len(mentions), "error", err)
		} else {
			s.info("notification sent", "channel", channel, "mentions", len(mentions))
		}

		for _, id := range alertIDs {
			if uErr := s.repo.UpdateAlertStatus(ctx, id, status, errText); uErr != nil {
				s.warn("update alert failed", "alert_id", id, "error", uErr)
			}
		}
		attempts := len(mentions)
		if s.repo != nil {
			attempts = len(alertIDs)
		}
		metrics.AlertsTotal.WithLabelValues(channel, string(status)).Add(float64(attempts))

		res := ChannelResult{Channel: channel, Err: err}
		if err == nil {
			res.Delivered = len(mentions)
		}
		results = append(results, res)
	}
	return results
}

func (s *AlertService) recordPending(ctx context.Context, channel string, mentions []domain.Mention) []int64 {
	if s.repo == nil {
		return nil
	}
	ids := make([]int64, 0, len(mentions))
	for _, m := range mentions {
		if m.ID == 0 {
			continue
		}
		id, err := s.repo.RecordAlert(ctx, m.ID, channel, domain.AlertPending)
		if err != nil {
			s.warn("record alert failed", "channel", channel, "mention_id", m.ID, "error", err)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (s *AlertService) info(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *AlertService) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
