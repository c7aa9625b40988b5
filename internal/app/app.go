package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"PortfolioMonitor/internal/config"
	"PortfolioMonitor/internal/domain"
	"PortfolioMonitor/internal/infrastructure/ml"
	"PortfolioMonitor/internal/infrastructure/notify"
	"PortfolioMonitor/internal/infrastructure/parser"
	"PortfolioMonitor/internal/infrastructure/scheduler"
	"PortfolioMonitor/internal/infrastructure/storage"
	"PortfolioMonitor/internal/infrastructure/telegram"
	"PortfolioMonitor/internal/metrics"
	"PortfolioMonitor/internal/ports"
	"PortfolioMonitor/internal/relevance"
	"PortfolioMonitor/internal/scanner"
	"PortfolioMonitor/internal/sentiment"
	"PortfolioMonitor/internal/usecase"
	"PortfolioMonitor/internal/web"
)

// Options carries process-level collaborators that are not part of the configuration.
type Options struct {
	// Out receives console alerts; stdout when nil.
	Out     io.Writer
	NoColor bool
	// HTTPClient is shared by every scanner; a 30s-timeout client when nil.
	HTTPClient *http.Client
	Registerer prometheus.Registerer
}

// Application wires configs to use cases and owns the store handle.
type Application struct {
	cfg       config.Config
	log       *slog.Logger
	store     *storage.SQLRepository
	registry  *scanner.Registry
	pipeline  *usecase.Pipeline
	alerts    *usecase.AlertService
	purge     *usecase.PurgeService
	scheduler *usecase.Scheduler
	cron      *scheduler.CronScheduler
	server    *web.Server
}

// New opens storage and builds every component. Close releases the store.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger, opts Options) (*Application, error) {
	if baseLogger == nil {
		baseLogger = slog.New(slog.DiscardHandler)
	}

	registerer := opts.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if err := metrics.Register(registerer); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	store, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	entities := cfg.MonitoredEntities()
	if err := store.SyncEntities(ctx, entities); err != nil {
		_ = store.Close()
		return nil, err
	}

	a := &Application{cfg: cfg, log: baseLogger, store: store}
	a.registry = newRegistry(cfg, opts.HTTPClient)

	sources, err := a.sources()
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Sources:     sources,
		Classifier:  relevance.NewClassifier(ruleTable(cfg), genericRules(cfg)),
		Scorer:      a.scorer(),
		Repository:  store,
		Entities:    entities,
		EntityDelay: cfg.Monitor.EntityDelay,
		Concurrency: cfg.Monitor.Concurrency,
		Logger:      baseLogger.With("component", "pipeline"),
	})
	a.alerts = usecase.NewAlertService(store, notifiers(cfg, opts), baseLogger.With("component", "alerts"))
	a.purge = usecase.NewPurgeService(store, exclusions(cfg), baseLogger.With("component", "purge"))

	a.cron = scheduler.NewCronScheduler(cfg.Scheduler.Spec(),
		scheduler.WithLocation(cfg.Scheduler.Location()),
		scheduler.WithRunOnStart(true),
		scheduler.WithLogger(baseLogger))
	a.scheduler = usecase.NewScheduler(a.cron, a.pipeline, a.alerts, baseLogger.With("component", "scheduler"))
	a.server = web.NewServer(store, baseLogger.With("component", "http"))

	return a, nil
}

func newRegistry(cfg config.Config, client *http.Client) *scanner.Registry {
	registry := scanner.NewRegistry()
	for _, sc := range cfg.Sources {
		switch sc.Name {
		case "googlenews":
			registry.Register(parser.NewGoogleNewsScanner(client, sc.BaseURL))
		case "newsapi":
			registry.Register(parser.NewNewsAPIScanner(client, sc.BaseURL, sc.APIKey))
		case "websearch":
			registry.Register(parser.NewWebSearchScanner(client, sc.BaseURL, sc.Site, sc.Label))
		}
	}
	return registry
}

func (a *Application) sources() ([]ports.CandidateSource, error) {
	var out []ports.CandidateSource
	for _, sc := range a.cfg.Sources {
		if !sc.Enabled {
			continue
		}
		s, err := a.registry.Resolve(sc.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, parser.NewKeywordSource(s, parser.KeywordSourceConfig{
			Keywords: sc.Keywords,
			Limit:    a.cfg.Monitor.MaxArticlesPerCheck,
			Lookback: a.cfg.Monitor.Lookback(),
			Interval: sc.Interval,
		}, a.log.With("component", "source."+sc.Name)))
	}
	return out, nil
}

func (a *Application) scorer() ports.SentimentScorer {
	if !a.cfg.Monitor.SentimentEnabled() {
		return nil
	}
	if a.cfg.Sentiment.ServiceURL != "" {
		return ml.NewClient(a.cfg.Sentiment.ServiceURL, a.cfg.Sentiment.APIKey)
	}
	return sentiment.NewVaderScorer()
}

func notifiers(cfg config.Config, opts Options) []ports.Notifier {
	var out []ports.Notifier
	if cfg.Notifications.Console {
		out = append(out, notify.NewConsole(opts.Out, opts.NoColor))
	}
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		out = append(out, telegram.NewNotifier(tg.BotToken, tg.ChatID))
	}
	if url := cfg.Notifications.Slack.WebhookURL; url != "" {
		out = append(out, notify.NewSlack(url, nil))
	}
	return out
}

func ruleTable(cfg config.Config) relevance.RuleTable {
	rules := make(map[string]relevance.EntityRules)
	for _, e := range cfg.Entities {
		if len(e.Exclude) == 0 && len(e.RequireContext) == 0 && len(e.Identifiers) == 0 {
			continue
		}
		rules[e.Name] = relevance.EntityRules{
			Exclude:        e.Exclude,
			RequireContext: e.RequireContext,
			Identifiers:    e.Identifiers,
		}
	}
	return relevance.NewRuleTable(rules)
}

func genericRules(cfg config.Config) relevance.GenericRules {
	rules := relevance.DefaultGenericRules()
	if len(cfg.Relevance.Deny) > 0 {
		rules.Deny = cfg.Relevance.Deny
	}
	if len(cfg.Relevance.Allow) > 0 {
		rules.Allow = cfg.Relevance.Allow
	}
	return rules
}

func exclusions(cfg config.Config) map[string][]string {
	out := make(map[string][]string, len(cfg.Entities))
	for _, e := range cfg.Entities {
		out[e.Name] = e.Exclude
	}
	return out
}

// Config exposes the loaded configuration.
func (a *Application) Config() config.Config { return a.cfg }

// Store exposes the repository for reporting commands.
func (a *Application) Store() *storage.SQLRepository { return a.store }

// Purge exposes the cleanup use case.
func (a *Application) Purge() *usecase.PurgeService { return a.purge }

// Sources lists the registered scanner names.
func (a *Application) Sources() []string { return a.registry.Names() }

// Run performs a single monitoring cycle, optionally restricted to one entity, and dispatches alerts.
func (a *Application) Run(ctx context.Context, entity string) (usecase.RunReport, []usecase.ChannelResult, error) {
	if entity == "" {
		return a.scheduler.RunOnce(ctx)
	}

	ec, err := a.cfg.Entity(entity)
	if err != nil {
		return usecase.RunReport{}, nil, err
	}
	target := domain.MonitoredEntity{Name: ec.Name, Keywords: ec.Keywords, Description: ec.Description, Fund: ec.Fund, Website: ec.Website}
	return a.runEntities(ctx, []domain.MonitoredEntity{target})
}

// RunFund performs a single monitoring cycle over the companies of one fund and dispatches alerts.
func (a *Application) RunFund(ctx context.Context, fund string) (usecase.RunReport, []usecase.ChannelResult, error) {
	entities, err := a.cfg.FundEntities(fund)
	if err != nil {
		return usecase.RunReport{}, nil, err
	}
	return a.runEntities(ctx, entities)
}

func (a *Application) runEntities(ctx context.Context, entities []domain.MonitoredEntity) (usecase.RunReport, []usecase.ChannelResult, error) {
	report, err := a.pipeline.RunEntities(ctx, entities)
	return report, a.alerts.Dispatch(ctx, report.NewMentions), err
}

// Monitor runs the schedule until ctx is cancelled.
func (a *Application) Monitor(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return err
	}
	a.log.Info("monitoring started", "schedule", a.cfg.Scheduler.Spec(), "next", a.cron.Next(), "entities", len(a.pipeline.Entities()))

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	return a.scheduler.Stop(stopCtx)
}

// Serve runs the reporting API until ctx is cancelled.
func (a *Application) Serve(ctx context.Context, addr string) error {
	if addr == "" {
		addr = a.cfg.HTTP.Addr
	}
	errCh := make(chan error, 1)
	go func() { errCh <- a.server.Start(addr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return errors.Join(a.server.Shutdown(shutdownCtx), <-errCh)
}

// Close releases the store.
func (a *Application) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}
