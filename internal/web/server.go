// Package web exposes the read-only reporting API over HTTP.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"PortfolioMonitor/internal/domain"
	"PortfolioMonitor/pkg/logger"
)

const (
	defaultRecentHours = 24
	maxRecentHours     = 24 * 90
	defaultEntityLimit = 50
	maxEntityLimit     = 500
)

// Store is the reporting surface of the mention store.
type Store interface {
	Recent(ctx context.Context, window time.Duration) ([]domain.Mention, error)
	ByEntity(ctx context.Context, name string, limit int) ([]domain.Mention, error)
	Statistics(ctx context.Context) (domain.Statistics, error)
	Entities(ctx context.Context) ([]domain.MonitoredEntity, error)
	Ping(ctx context.Context) error
}

// Server wraps chi.Router with the base middlewares.
type Server struct {
	Router chi.Router
	store  Store
	log    *slog.Logger

	mu     sync.Mutex
	srv    *http.Server
	closed bool
}

// NewServer builds the router and registers every route.
func NewServer(store Store, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Server{store: store, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/api", func(r chi.Router) {
		r.Get("/mentions/recent", s.recent)
		r.Get("/stats", s.stats)
		r.Get("/entities", s.entities)
		r.Get("/entities/{name}/mentions", s.entityMentions)
	})

	s.Router = r
	return s
}

// Start runs http.Server until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		ErrorLog:     logger.New(s.log, "http", slog.LevelError),
	}
	s.srv = srv
	s.mu.Unlock()

	s.log.Info("http server started", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.closed = true
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

type mentionDTO struct {
	ID          int64    `json:"id"`
	Entity      string   `json:"company_name"`
	Title       string   `json:"title"`
	Content     string   `json:"content,omitempty"`
	URL         string   `json:"url,omitempty"`
	Source      string   `json:"source"`
	PublishedAt string   `json:"published_date,omitempty"`
	Sentiment   *float64 `json:"sentiment_score"`
	Label       string   `json:"sentiment_label,omitempty"`
	CreatedAt   string   `json:"created_at"`
}

func toDTO(mentions []domain.Mention) []mentionDTO {
	out := make([]mentionDTO, 0, len(mentions))
	for _, m := range mentions {
		d := mentionDTO{
			ID:        m.ID,
			Entity:    m.Entity,
			Title:     m.Title,
			Content:   m.Content,
			URL:       m.Link,
			Source:    m.Source,
			Sentiment: m.Sentiment,
			CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
		}
		if !m.PublishedAt.IsZero() {
			d.PublishedAt = m.PublishedAt.UTC().Format(time.RFC3339)
		}
		if m.Sentiment != nil {
			d.Label = domain.SentimentLabel(*m.Sentiment)
		}
		out = append(out, d)
	}
	return out
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) recent(w http.ResponseWriter, r *http.Request) {
	hours, err := intParam(r, "hours", defaultRecentHours, maxRecentHours)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	mentions, err := s.store.Recent(r.Context(), time.Duration(hours)*time.Hour)
	if err != nil {
		s.internal(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"hours": hours, "count": len(mentions), "mentions": toDTO(mentions)})
}

func (s *Server) entityMentions(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	limit, err := intParam(r, "limit", defaultEntityLimit, maxEntityLimit)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	mentions, err := s.store.ByEntity(r.Context(), name, limit)
	if err != nil {
		s.internal(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"company": name, "count": len(mentions), "mentions": toDTO(mentions)})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Statistics(r.Context())
	if err != nil {
		s.internal(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"total_mentions":      st.Total,
		"recent_mentions":     st.Recent,
		"recent_window_hours": st.RecentWindow.Hours(),
		"mentions_by_company": st.ByEntity,
		"mentions_by_source":  st.BySource,
		"average_sentiment":   st.AverageSentiment,
	})
}

type entityDTO struct {
	Name        string   `json:"name"`
	Keywords    []string `json:"keywords"`
	Description string   `json:"description,omitempty"`
	Fund        string   `json:"fund,omitempty"`
	Website     string   `json:"website,omitempty"`
}

func (s *Server) entities(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.Entities(r.Context())
	if err != nil {
		s.internal(w, r, err)
		return
	}
	out := make([]entityDTO, 0, len(list))
	for _, e := range list {
		out = append(out, entityDTO{Name: e.Name, Keywords: e.Keywords, Description: e.Description, Fund: e.Fund, Website: e.Website})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "companies": out})
}

func intParam(r *http.Request, key string, def, max int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, errors.New(key + " must be a positive integer")
	}
	return min(v, max), nil
}

func (s *Server) internal(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error("request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
	s.writeError(w, http.StatusInternalServerError, errors.New("internal error"))
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("encode response", "error", err)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
