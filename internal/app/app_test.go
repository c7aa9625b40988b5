package app

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"PortfolioMonitor/internal/config"
	"PortfolioMonitor/internal/domain"
	"PortfolioMonitor/internal/relevance"
	"PortfolioMonitor/internal/sentiment"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	disabled := false
	return config.Config{
		Database:  config.DatabaseConfig{Driver: "sqlite3", URL: filepath.Join(t.TempDir(), "app.db")},
		Monitor:   config.MonitorConfig{LookbackDays: 1, MaxArticlesPerCheck: 5, Concurrency: 1, EnableSentiment: &disabled},
		Scheduler: config.SchedulerConfig{IntervalMinutes: 30},
		Sources: []config.SourceConfig{
			{Name: "googlenews", Enabled: true, Keywords: 1},
			{Name: "newsapi", Enabled: false},
		},
		Notifications: config.NotificationConfig{Console: true, Slack: config.SlackConfig{WebhookURL: "http://127.0.0.1:1/hook"}},
		Entities: []config.EntityConfig{
			{Name: "Finch", Keywords: []string{"Finch", "finchnow"}, Exclude: []string{"beth finch"}, Identifiers: []string{"finchnow"}},
			{Name: "Vectroid", Keywords: []string{"Vectroid"}},
		},
	}
}

func TestNewWiresComponents(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	a, err := New(context.Background(), testConfig(t), nil, Options{Out: &out, NoColor: true, Registerer: prometheus.NewRegistry()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.Close()

	if names := a.Sources(); len(names) != 2 || names[0] != "googlenews" || names[1] != "newsapi" {
		t.Fatalf("unexpected scanners %v", names)
	}
	if got := len(a.pipeline.Entities()); got != 2 {
		t.Fatalf("expected 2 entities, got %d", got)
	}
	if ch := a.alerts.Channels(); len(ch) != 2 || ch[0] != "console" || ch[1] != "slack" {
		t.Fatalf("unexpected channels %v", ch)
	}
	if a.scorer() != nil {
		t.Fatalf("sentiment is disabled")
	}

	stored, err := a.Store().Entities(context.Background())
	if err != nil || len(stored) != 2 {
		t.Fatalf("entities not synced: %v %v", stored, err)
	}
}

func TestRunUnknownCompany(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), testConfig(t), nil, Options{Registerer: prometheus.NewRegistry()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.Close()

	if _, _, err := a.Run(context.Background(), "Nope"); err == nil {
		t.Fatalf("expected unknown company error")
	}
}

func TestServeStopsWithContext(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), testConfig(t), nil, Options{Registerer: prometheus.NewRegistry()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := a.Serve(ctx, "127.0.0.1:0"); err != nil {
		t.Fatalf("serve: %v", err)
	}
}

func TestRuleTableFromConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	table := ruleTable(cfg)
	if table.Len() != 1 {
		t.Fatalf("only entities with curated rules belong in the table, got %d", table.Len())
	}

	c := relevance.NewClassifier(table, genericRules(cfg))
	finch := domain.MonitoredEntity{Name: "Finch", Keywords: []string{"Finch"}}
	if c.IsRelevant(domain.Candidate{Title: "Beth Finch wins the startup award"}, finch) {
		t.Fatalf("exclusion must win")
	}
	if !c.IsRelevant(domain.Candidate{Title: "finchnow update"}, finch) {
		t.Fatalf("identifier must accept")
	}
}

func TestGenericRulesOverride(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Relevance.Allow = []string{"robotics"}
	rules := genericRules(cfg)
	if len(rules.Allow) != 1 || len(rules.Deny) == 0 {
		t.Fatalf("allow list must be replaced and deny list kept: %+v", rules)
	}
}

func TestScorerSelection(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Monitor.EnableSentiment = nil
	a := &Application{cfg: cfg}
	if _, ok := a.scorer().(*sentiment.VaderScorer); !ok {
		t.Fatalf("expected VADER by default")
	}
	a.cfg.Sentiment.ServiceURL = "http://scorer"
	if _, ok := a.scorer().(*sentiment.VaderScorer); ok {
		t.Fatalf("expected the remote scorer when a service url is set")
	}
}
