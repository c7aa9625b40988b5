package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"PortfolioMonitor/internal/domain"
	"PortfolioMonitor/internal/metrics"
	"PortfolioMonitor/internal/ports"
	"PortfolioMonitor/internal/relevance"
)

// State names the pipeline stage an entity is in.
type State string

const (
	StateIdle        State = "idle"
	StateFetching    State = "fetching"
	StateClassifying State = "classifying"
	StateScoring     State = "scoring"
	StateStoring     State = "storing"
	StateDone        State = "done"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Sources     []ports.CandidateSource
	Classifier  ports.RelevanceClassifier
	Scorer      ports.SentimentScorer
	Repository  ports.MentionRepository
	Entities    []domain.MonitoredEntity
	EntityDelay time.Duration
	Concurrency int
	Logger      *slog.Logger
}

// EntityReport summarizes one entity within a run.
type EntityReport struct {
	Entity     string `json:"entity"`
	Fetched    int    `json:"fetched"`
	Accepted   int    `json:"accepted"`
	Rejected   int    `json:"rejected"`
	Stored     int    `json:"stored"`
	Duplicates int    `json:"duplicates"`
	Err        error  `json:"-"`
}

// RunReport is the outcome of one pass over every entity.
type RunReport struct {
	RunID       string           `json:"run_id"`
	Started     time.Time        `json:"started"`
	Finished    time.Time        `json:"finished"`
	Entities    []EntityReport   `json:"entities"`
	NewMentions []domain.Mention `json:"-"`
}

// Stored counts new mentions across all entities.
func (r RunReport) Stored() int {
	return len(r.NewMentions)
}

// Pipeline implements the mention-ingestion workflow.
type Pipeline struct {
	sources     []ports.CandidateSource
	classifier  ports.RelevanceClassifier
	scorer      ports.SentimentScorer
	repository  ports.MentionRepository
	entities    []domain.MonitoredEntity
	entityDelay time.Duration
	concurrency int
	logger      *slog.Logger
}

type explainer interface {
	Evaluate(candidate domain.Candidate, entity domain.MonitoredEntity) relevance.Decision
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Pipeline{
		sources:     deps.Sources,
		classifier:  deps.Classifier,
		scorer:      deps.Scorer,
		repository:  deps.Repository,
		entities:    deps.Entities,
		entityDelay: deps.EntityDelay,
		concurrency: concurrency,
		logger:      deps.Logger,
	}
}

// Entities returns the monitored entities in run order.
func (p *Pipeline) Entities() []domain.MonitoredEntity {
	return p.entities
}

// Run processes every entity once and returns the mentions stored for the first time.
// Source failures only shrink the result; storage failures are reported per entity and joined into the error.
func (p *Pipeline) Run(ctx context.Context) (RunReport, error) {
	return p.RunEntities(ctx, p.entities)
}

// RunEntities is Run restricted to the given entities.
func (p *Pipeline) RunEntities(ctx context.Context, entities []domain.MonitoredEntity) (RunReport, error) {
	report := RunReport{RunID: uuid.NewString(), Started: time.Now().UTC()}
	if p.repository == nil || p.classifier == nil {
		return report, fmt.Errorf("pipeline is missing repository or classifier")
	}

	log := p.log().With("run_id", report.RunID)
	log.Info("run started", "entities", len(entities), "sources", len(p.sources), "concurrency", p.concurrency)

	reports := make([]EntityReport, len(entities))
	fresh := make([][]domain.Mention, len(entities))

	if p.concurrency == 1 {
		for i, entity := range entities {
			if i > 0 && !sleep(ctx, p.entityDelay) {
				break
			}
			reports[i], fresh[i] = p.processEntity(ctx, log, entity)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.concurrency)
		for i, entity := range entities {
			g.Go(func() error {
				reports[i], fresh[i] = p.processEntity(gctx, log, entity)
				return nil
			})
		}
		_ = g.Wait()
	}

	var errs []error
	for i := range reports {
		if reports[i].Entity == "" {
			continue
		}
		report.Entities = append(report.Entities, reports[i])
		report.NewMentions = append(report.NewMentions, fresh[i]...)
		if reports[i].Err != nil {
			errs = append(errs, fmt.Errorf("entity %s: %w", reports[i].Entity, reports[i].Err))
		}
	}

	report.Finished = time.Now().UTC()
	metrics.RunDuration.Observe(report.Finished.Sub(report.Started).Seconds())
	log.Info("run finished",
		"state", StateDone,
		"entities", len(report.Entities),
		"new_mentions", report.Stored(),
		"duration", report.Finished.Sub(report.Started).Round(time.Millisecond))

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return report, errors.Join(errs...)
}

func (p *Pipeline) processEntity(ctx context.Context, runLog *slog.Logger, entity domain.MonitoredEntity) (EntityReport, []domain.Mention) {
	rep := EntityReport{Entity: entity.Name}
	log := runLog.With("entity", entity.Name)

	log.Debug("state", "state", StateFetching)
	var candidates []domain.Candidate
	for _, src := range p.sources {
		if ctx.Err() != nil {
			break
		}
		found := src.Fetch(ctx, entity)
		log.Debug("source done", "source", src.Name(), "candidates", len(found))
		candidates = append(candidates, found...)
	}
	rep.Fetched = len(candidates)

	log.Debug("state", "state", StateClassifying, "candidates", len(candidates))
	accepted := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if p.classify(c, entity, log) {
			accepted = append(accepted, c)
			continue
		}
		rep.Rejected++
	}
	rep.Accepted = len(accepted)

	var fresh []domain.Mention
	for _, c := range accepted {
		log.Debug("state", "state", StateScoring, "title", c.Title)
		mention := domain.NewMention(c, entity.Name, p.score(ctx, c, log))

		log.Debug("state", "state", StateStoring, "fingerprint", mention.Fingerprint)
		id, inserted, err := p.repository.Insert(ctx, mention)
		if err != nil {
			rep.Err = fmt.Errorf("store mention: %w", err)
			log.Error("store mention failed", "error", err)
			break
		}
		if !inserted {
			rep.Duplicates++
			metrics.MentionDuplicates.WithLabelValues(entity.Name).Inc()
			continue
		}
		mention.ID = id
		fresh = append(fresh, mention)
		metrics.MentionsStored.WithLabelValues(entity.Name).Inc()
	}
	rep.Stored = len(fresh)

	log.Info("entity processed",
		"fetched", rep.Fetched,
		"accepted", rep.Accepted,
		"stored", rep.Stored,
		"duplicates", rep.Duplicates)
	return rep, fresh
}

func (p *Pipeline) classify(c domain.Candidate, entity domain.MonitoredEntity, log *slog.Logger) bool {
	if ex, ok := p.classifier.(explainer); ok {
		d := ex.Evaluate(c, entity)
		metrics.ClassifierDecisions.WithLabelValues(entity.Name, string(d.Reason)).Inc()
		if !d.Relevant {
			log.Debug("candidate rejected", "reason", d.Reason, "term", d.Term, "title", c.Title)
		}
		return d.Relevant
	}
	relevant := p.classifier.IsRelevant(c, entity)
	verdict := "rejected"
	if relevant {
		verdict = "accepted"
	}
	metrics.ClassifierDecisions.WithLabelValues(entity.Name, verdict).Inc()
	return relevant
}

func (p *Pipeline) score(ctx context.Context, c domain.Candidate, log *slog.Logger) *float64 {
	if p.scorer == nil {
		return nil
	}
	s, err := p.scorer.Score(ctx, c.Text())
	if err != nil {
		log.Warn("sentiment scoring failed", "error", err)
		return nil
	}
	return &s
}

func (p *Pipeline) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return slog.New(slog.DiscardHandler)
}

// sleep waits for d unless ctx ends first; it reports whether the wait completed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
