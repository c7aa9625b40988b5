package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"PortfolioMonitor/internal/domain"
	"PortfolioMonitor/internal/infrastructure/storage"
	"PortfolioMonitor/internal/ports"
	"PortfolioMonitor/internal/relevance"
)

var vectroid = domain.MonitoredEntity{Name: "Vectroid", Keywords: []string{"Vectroid", "vector database"}}

func vectroidCandidates() []domain.Candidate {
	return []domain.Candidate{
		{Title: "Vectroid raises funding for vector database platform", Snippet: "...", Link: "https://example.com/a", Source: "Google News - Wire"},
		{Title: "Best recipes with vectors", Snippet: "Cooking tips", Link: "https://example.com/b", Source: "Google News - Food"},
	}
}

func newTestPipeline(repo ports.MentionRepository, sources []ports.CandidateSource, scorer ports.SentimentScorer, entities ...domain.MonitoredEntity) *Pipeline {
	return NewPipeline(PipelineDeps{
		Sources:    sources,
		Classifier: relevance.NewClassifier(relevance.NewRuleTable(nil), relevance.DefaultGenericRules()),
		Scorer:     scorer,
		Repository: repo,
		Entities:   entities,
	})
}

func TestPipelineAcceptsAndScores(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	src := &staticSource{name: "stub", items: map[string][]domain.Candidate{"Vectroid": vectroidCandidates()}}
	p := newTestPipeline(repo, []ports.CandidateSource{src}, fixedScorer{score: 0.6}, vectroid)

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.RunID == "" || report.Finished.Before(report.Started) {
		t.Fatalf("unexpected report header %+v", report)
	}
	if report.Stored() != 1 {
		t.Fatalf("expected 1 new mention, got %d", report.Stored())
	}

	m := report.NewMentions[0]
	if m.ID == 0 || m.Entity != "Vectroid" || m.Link != "https://example.com/a" {
		t.Fatalf("unexpected mention %+v", m)
	}
	if m.Sentiment == nil || *m.Sentiment != 0.6 {
		t.Fatalf("sentiment not attached: %v", m.Sentiment)
	}
	if m.Fingerprint != domain.Fingerprint(m.Title, m.Link, "Vectroid") {
		t.Fatalf("fingerprint mismatch")
	}

	er := report.Entities[0]
	if er.Fetched != 2 || er.Accepted != 1 || er.Rejected != 1 || er.Stored != 1 {
		t.Fatalf("unexpected entity report %+v", er)
	}
}

func TestPipelineScorerFailureLeavesScoreEmpty(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	src := &staticSource{name: "stub", items: map[string][]domain.Candidate{"Vectroid": vectroidCandidates()}}
	p := newTestPipeline(repo, []ports.CandidateSource{src}, fixedScorer{err: errors.New("offline")}, vectroid)

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("scorer errors must not fail the run: %v", err)
	}
	if report.Stored() != 1 || report.NewMentions[0].Sentiment != nil {
		t.Fatalf("expected a stored mention without score, got %+v", report.NewMentions)
	}
}

func TestPipelineSecondRunStoresNothing(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	src := &staticSource{name: "stub", items: map[string][]domain.Candidate{"Vectroid": vectroidCandidates()}}
	p := newTestPipeline(repo, []ports.CandidateSource{src}, nil, vectroid)

	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Stored() != 0 || second.Entities[0].Duplicates != 1 {
		t.Fatalf("second run must only see duplicates: %+v", second.Entities[0])
	}
	rows, _ := repo.ByEntity(context.Background(), "Vectroid", 0)
	if len(rows) != 1 {
		t.Fatalf("expected one stored row, got %d", len(rows))
	}
}

func TestPipelineStorageErrorIsReported(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	repo.failAfter = 0
	finch := domain.MonitoredEntity{Name: "Finch", Keywords: []string{"Finch"}}
	src := &staticSource{name: "stub", items: map[string][]domain.Candidate{
		"Vectroid": vectroidCandidates(),
		"Finch":    {{Title: "Finch startup launches platform", Link: "https://example.com/f"}},
	}}
	p := newTestPipeline(repo, []ports.CandidateSource{src}, nil, vectroid, finch)

	report, err := p.Run(context.Background())
	if err == nil {
		t.Fatalf("expected storage error")
	}
	if len(report.Entities) != 2 {
		t.Fatalf("other entities must still be processed, got %d reports", len(report.Entities))
	}
	for _, er := range report.Entities {
		if er.Err == nil {
			t.Fatalf("expected per-entity error for %s", er.Entity)
		}
	}
}

func TestPipelineConcurrentEntitiesKeepOrder(t *testing.T) {
	t.Parallel()

	entities := []domain.MonitoredEntity{
		{Name: "Alpha", Keywords: []string{"Alpha"}},
		{Name: "Beta", Keywords: []string{"Beta"}},
		{Name: "Gamma", Keywords: []string{"Gamma"}},
	}
	items := map[string][]domain.Candidate{}
	for _, e := range entities {
		items[e.Name] = []domain.Candidate{{Title: e.Name + " startup raises funding", Link: "https://example.com/" + e.Name}}
	}

	repo := newMemoryRepo()
	p := NewPipeline(PipelineDeps{
		Sources:     []ports.CandidateSource{&staticSource{name: "stub", items: items}},
		Classifier:  relevance.NewClassifier(relevance.NewRuleTable(nil), relevance.DefaultGenericRules()),
		Repository:  repo,
		Entities:    entities,
		Concurrency: 3,
	})

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Stored() != 3 {
		t.Fatalf("expected 3 mentions, got %d", report.Stored())
	}
	for i, e := range entities {
		if report.Entities[i].Entity != e.Name || report.NewMentions[i].Entity != e.Name {
			t.Fatalf("results must follow entity order, got %s at %d", report.Entities[i].Entity, i)
		}
	}
}

func TestPipelineEntityDelayRespectsCancellation(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	p := NewPipeline(PipelineDeps{
		Sources:     []ports.CandidateSource{&staticSource{name: "stub"}},
		Classifier:  relevance.NewClassifier(relevance.NewRuleTable(nil), relevance.DefaultGenericRules()),
		Repository:  repo,
		Entities:    []domain.MonitoredEntity{vectroid, {Name: "Finch", Keywords: []string{"Finch"}}},
		EntityDelay: time.Hour,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	report, err := p.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if len(report.Entities) != 1 {
		t.Fatalf("only the first entity should run before the delay, got %d", len(report.Entities))
	}
}

func TestTwoRunsAgainstSQLiteAreIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo, err := storage.Open(ctx, "sqlite3", filepath.Join(t.TempDir(), "monitor.db"))
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	defer repo.Close()

	src := &staticSource{name: "stub", items: map[string][]domain.Candidate{"Vectroid": vectroidCandidates()}}
	p := newTestPipeline(repo, []ports.CandidateSource{src}, nil, vectroid)

	first, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	afterFirst, err := repo.ByEntity(ctx, "Vectroid", 0)
	if err != nil {
		t.Fatalf("by entity: %v", err)
	}

	second, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	afterSecond, err := repo.ByEntity(ctx, "Vectroid", 0)
	if err != nil {
		t.Fatalf("by entity: %v", err)
	}

	if first.Stored() != 1 || second.Stored() != 0 {
		t.Fatalf("unexpected stored counts %d / %d", first.Stored(), second.Stored())
	}
	if len(afterFirst) != len(afterSecond) || len(afterSecond) != 1 {
		t.Fatalf("row count changed between runs: %d -> %d", len(afterFirst), len(afterSecond))
	}
}
