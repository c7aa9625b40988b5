package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"PortfolioMonitor/internal/domain"
)

type staticSource struct {
	name  string
	items map[string][]domain.Candidate
	calls int
	mu    sync.Mutex
}

func (s *staticSource) Name() string { return s.name }

func (s *staticSource) Fetch(_ context.Context, entity domain.MonitoredEntity) []domain.Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return append([]domain.Candidate(nil), s.items[entity.Name]...)
}

type memoryRepo struct {
	mu        sync.Mutex
	rows      []domain.Mention
	failAfter int
	alerts    map[int64]domain.AlertRecord
	nextAlert int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{failAfter: -1, alerts: map[int64]domain.AlertRecord{}}
}

func (r *memoryRepo) Insert(_ context.Context, m domain.Mention) (int64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAfter >= 0 && len(r.rows) >= r.failAfter {
		return 0, false, errors.New("disk full")
	}
	for _, row := range r.rows {
		if row.Fingerprint == m.Fingerprint || (m.Link != "" && row.Link == m.Link) {
			return 0, false, nil
		}
	}
	m.ID = int64(len(r.rows) + 1)
	r.rows = append(r.rows, m)
	return m.ID, true, nil
}

func (r *memoryRepo) Recent(context.Context, time.Duration) ([]domain.Mention, error) {
	return nil, nil
}

func (r *memoryRepo) ByEntity(_ context.Context, name string, _ int) ([]domain.Mention, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Mention
	for _, row := range r.rows {
		if row.Entity == name {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memoryRepo) PurgeMatching(_ context.Context, entity string, patterns []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []domain.Mention
	var removed int64
	for _, row := range r.rows {
		match := false
		for _, p := range patterns {
			p = strings.ToLower(p)
			if strings.Contains(strings.ToLower(row.Title), p) || strings.Contains(strings.ToLower(row.Content), p) {
				match = true
			}
		}
		if row.Entity == entity && match {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	r.rows = kept
	return removed, nil
}

func (r *memoryRepo) Statistics(context.Context) (domain.Statistics, error) {
	return domain.Statistics{Total: len(r.rows)}, nil
}

func (r *memoryRepo) RecordAlert(_ context.Context, mentionID int64, channel string, status domain.AlertStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextAlert++
	r.alerts[r.nextAlert] = domain.AlertRecord{ID: r.nextAlert, MentionID: mentionID, Channel: channel, Status: status}
	return r.nextAlert, nil
}

func (r *memoryRepo) UpdateAlertStatus(_ context.Context, alertID int64, status domain.AlertStatus, errText string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.alerts[alertID]
	if !ok || rec.Status != domain.AlertPending {
		return domain.ErrAlertNotPending
	}
	rec.Status = status
	rec.Error = errText
	r.alerts[alertID] = rec
	return nil
}

func (r *memoryRepo) alertsByStatus(status domain.AlertStatus) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.alerts {
		if a.Status == status {
			n++
		}
	}
	return n
}

type fakeNotifier struct {
	channel string
	err     error
	batches [][]domain.Mention
}

func (n *fakeNotifier) Channel() string { return n.channel }

func (n *fakeNotifier) Notify(_ context.Context, mentions []domain.Mention) error {
	n.batches = append(n.batches, mentions)
	return n.err
}

type fixedScorer struct {
	score float64
	err   error
}

func (s fixedScorer) Score(context.Context, string) (float64, error) {
	return s.score, s.err
}
