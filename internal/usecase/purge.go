package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"PortfolioMonitor/internal/domain"
	"PortfolioMonitor/internal/metrics"
	"PortfolioMonitor/internal/ports"
)

// PurgeService removes stored false positives after classification rules were tightened.
type PurgeService struct {
	repo     ports.MentionRepository
	patterns map[string][]string
	names    map[string]string
	logger   *slog.Logger
}

// NewPurgeService takes the configured exclusion terms per entity name as default patterns.
func NewPurgeService(repo ports.MentionRepository, exclusions map[string][]string, log *slog.Logger) *PurgeService {
	patterns := make(map[string][]string, len(exclusions))
	names := make(map[string]string, len(exclusions))
	for name, terms := range exclusions {
		key := strings.ToLower(strings.TrimSpace(name))
		patterns[key] = terms
		names[key] = name
	}
	return &PurgeService{repo: repo, patterns: patterns, names: names, logger: log}
}

// Purge deletes mentions of entity matching patterns; with no patterns the entity's
// configured exclusions are used.
func (p *PurgeService) Purge(ctx context.Context, entity string, patterns []string) (int64, error) {
	key := strings.ToLower(strings.TrimSpace(entity))
	if len(patterns) == 0 {
		configured, ok := p.patterns[key]
		if !ok {
			return 0, fmt.Errorf("%w: %s has no configured exclusions", domain.ErrEntityNotFound, entity)
		}
		patterns = configured
	}
	if name, ok := p.names[key]; ok {
		entity = name
	}

	n, err := p.repo.PurgeMatching(ctx, entity, patterns)
	if err != nil {
		return 0, fmt.Errorf("purge %s: %w", entity, err)
	}
	metrics.PurgedMentions.WithLabelValues(entity).Add(float64(n))
	if p.logger != nil {
		p.logger.Info("purged mentions", "entity", entity, "patterns", len(patterns), "removed", n)
	}
	return n, nil
}

// PurgeAll applies every entity's configured exclusions and reports removals per entity.
func (p *PurgeService) PurgeAll(ctx context.Context) (map[string]int64, error) {
	keys := make([]string, 0, len(p.patterns))
	for k := range p.patterns {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	removed := make(map[string]int64, len(keys))
	for _, k := range keys {
		if len(p.patterns[k]) == 0 {
			continue
		}
		n, err := p.Purge(ctx, p.names[k], nil)
		if err != nil {
			return removed, err
		}
		removed[p.names[k]] = n
	}
	return removed, nil
}
