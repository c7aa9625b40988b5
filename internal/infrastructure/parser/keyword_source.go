package parser

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"PortfolioMonitor/internal/domain"
	"PortfolioMonitor/internal/metrics"
	"PortfolioMonitor/internal/ports"
	"PortfolioMonitor/internal/scanner"
)

// KeywordSourceConfig bounds how a scanner is driven per entity. Only the first Keywords
// keywords are searched, at most Limit candidates are kept per Fetch, and upstream calls
// are spaced by at least Interval.
type KeywordSourceConfig struct {
	Keywords int
	Limit    int
	Lookback time.Duration
	Interval time.Duration
}

// KeywordSource implements CandidateSource on top of one registered scanner strategy.
type KeywordSource struct {
	scanner scanner.Scanner
	cfg     KeywordSourceConfig
	limiter *rate.Limiter
	logger  *slog.Logger
	now     func() time.Time
}

var _ ports.CandidateSource = (*KeywordSource)(nil)

// NewKeywordSource wraps a scanner with keyword selection, throttling and failure isolation.
func NewKeywordSource(s scanner.Scanner, cfg KeywordSourceConfig, log *slog.Logger) *KeywordSource {
	if cfg.Keywords <= 0 {
		cfg.Keywords = 2
	}
	limit := rate.Inf
	if cfg.Interval > 0 {
		limit = rate.Every(cfg.Interval)
	}
	return &KeywordSource{
		scanner: s,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		logger:  log,
		now:     time.Now,
	}
}

// Name reports the wrapped scanner name.
func (k *KeywordSource) Name() string {
	return k.scanner.Name()
}

// Fetch searches the leading keywords of the entity. A failing keyword contributes nothing
// and never aborts the others.
func (k *KeywordSource) Fetch(ctx context.Context, entity domain.MonitoredEntity) []domain.Candidate {
	keywords := leadingKeywords(entity.Keywords, k.cfg.Keywords)
	k.debug("fetch entity", "entity", entity.Name, "keywords", len(keywords))

	var since time.Time
	if k.cfg.Lookback > 0 {
		since = k.now().UTC().Add(-k.cfg.Lookback)
	}

	var aggregated []domain.Candidate
	for _, kw := range keywords {
		remaining := 0
		if k.cfg.Limit > 0 {
			remaining = k.cfg.Limit - len(aggregated)
			if remaining <= 0 {
				break
			}
		}

		if err := k.limiter.Wait(ctx); err != nil {
			k.warn("throttle interrupted", "entity", entity.Name, "error", err)
			break
		}

		start := time.Now()
		results, err := k.scanner.Search(ctx, scanner.Request{Keyword: kw, Limit: remaining, Since: since})
		metrics.ObserveSourceRequest(k.Name(), start, err)
		if err != nil {
			k.warn("keyword search failed", "entity", entity.Name, "keyword", kw, "error", err)
			continue
		}

		for i := range results {
			if results[i].Source == "" {
				results[i].Source = k.Name()
			}
		}
		if remaining > 0 && len(results) > remaining {
			results = results[:remaining]
		}
		k.debug("keyword produced candidates", "entity", entity.Name, "keyword", kw, "count", len(results))
		aggregated = append(aggregated, results...)
	}

	metrics.CandidatesFetched.WithLabelValues(k.Name()).Add(float64(len(aggregated)))
	return aggregated
}

func leadingKeywords(all []string, n int) []string {
	out := make([]string, 0, n)
	for _, kw := range all {
		if len(out) == n {
			break
		}
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

func (k *KeywordSource) debug(msg string, args ...any) {
	if k.logger != nil {
		k.logger.Debug(msg, args...)
	}
}

func (k *KeywordSource) warn(msg string, args ...any) {
	if k.logger != nil {
		k.logger.Warn(msg, args...)
	}
}
