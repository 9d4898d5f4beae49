// Package api exposes the HTTP interface for the job scraper service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pfitan-web/aijobscraper/internal/classify"
	"github.com/pfitan-web/aijobscraper/internal/config"
	"github.com/pfitan-web/aijobscraper/internal/jobs"
	"github.com/pfitan-web/aijobscraper/internal/metrics"
	"github.com/pfitan-web/aijobscraper/internal/scheduler"
	"github.com/pfitan-web/aijobscraper/internal/scrape"
	"github.com/pfitan-web/aijobscraper/internal/store"
)

// Server wires HTTP handlers to the orchestrator, pipeline and board.
type Server struct {
	router       chi.Router
	orchestrator *scrape.Orchestrator
	pipeline     *classify.Pipeline
	board        *store.Board
	snapshots    jobs.SnapshotStore
	publisher    jobs.Publisher
	schedule     *scheduler.Scheduler
	clock        jobs.Clock
	cfg          config.Config
	logger       *zap.Logger

	mu        sync.Mutex
	runCancel context.CancelFunc
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	orchestrator *scrape.Orchestrator,
	pipeline *classify.Pipeline,
	board *store.Board,
	snapshots jobs.SnapshotStore,
	publisher jobs.Publisher,
	schedule *scheduler.Scheduler,
	clock jobs.Clock,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	s := &Server{
		orchestrator: orchestrator,
		pipeline:     pipeline,
		board:        board,
		snapshots:    snapshots,
		publisher:    publisher,
		schedule:     schedule,
		clock:        clock,
		cfg:          cfg,
		logger:       logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		// The scrape run gets the full budget; everything else answers fast.
		r.Post("/scrape", s.startScrape)
		r.Post("/scrape/stop", s.stopScrape)
		r.Get("/scrape/status", s.scrapeStatus)

		r.Group(func(r chi.Router) {
			r.Use(timeoutMiddleware(30 * time.Second))
			r.Get("/jobs", s.listJobs)
			r.Post("/jobs/move", s.moveJob)
			r.Post("/jobs/clear", s.clearJobs)
			r.Delete("/jobs/{job_id}", s.deleteJob)
			r.Get("/settings", s.getSettings)
			r.Put("/settings", s.putSettings)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	// A readable snapshot store is the only hard dependency at startup.
	if _, err := s.snapshots.LoadSettings(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "snapshot store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type scrapeResponse struct {
	Success  bool                     `json:"success"`
	Jobs     []jobs.ClassifiedPosting `json:"jobs"`
	Count    int                      `json:"count"`
	Error    string                   `json:"error,omitempty"`
	Stopped  bool                     `json:"stopped,omitempty"`
	Message  string                   `json:"message,omitempty"`
	Scraped  int                      `json:"scraped"`
	Added    int                      `json:"added"`
	Skipped  int                      `json:"skipped"`
	Duration string                   `json:"duration,omitempty"`
}

func (s *Server) startScrape(w http.ResponseWriter, r *http.Request) {
	var req jobs.ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	s.applyDefaults(&req)

	ctx, err := s.beginRun(r.Context())
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	defer s.endRun()

	start := s.clock.Now()
	outcome, status := s.runScrape(ctx, req)
	outcome.Duration = s.clock.Now().Sub(start).Round(time.Millisecond).String()
	if outcome.Jobs == nil {
		outcome.Jobs = []jobs.ClassifiedPosting{}
	}
	writeJSON(w, status, outcome)
}

// runScrape executes scrape, classification and merge under one cancelable
// context. Stopping the run at any phase yields the postings classified so
// far; they are merged rather than thrown away.
func (s *Server) runScrape(ctx context.Context, req jobs.ScrapeRequest) (scrapeResponse, int) {
	settings, err := s.snapshots.LoadSettings(ctx)
	if err != nil {
		s.logger.Error("load settings", zap.Error(err))
		return scrapeResponse{Error: "failed to load settings"}, http.StatusInternalServerError
	}

	postings, scrapeErr := s.orchestrator.Run(ctx, req)
	if scrapeErr != nil && !errors.Is(scrapeErr, context.Canceled) && !errors.Is(scrapeErr, context.DeadlineExceeded) {
		if errors.Is(scrapeErr, scrape.ErrScrapeActive) {
			return scrapeResponse{Error: scrapeErr.Error()}, http.StatusConflict
		}
		s.logger.Error("scrape failed", zap.Error(scrapeErr))
		return scrapeResponse{Error: scrapeErr.Error()}, http.StatusInternalServerError
	}

	classified, classifyErr := s.pipeline.Classify(ctx, postings, settings.Criteria)
	if errors.Is(classifyErr, classify.ErrNoResults) && ctx.Err() == nil {
		return scrapeResponse{
			Success: true,
			Message: "no new jobs found",
			Scraped: len(postings),
		}, http.StatusOK
	}

	added, skipped := 0, 0
	if len(classified) > 0 {
		// Persist with a fresh context so a stopped run still saves what it
		// classified.
		saveCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		added, skipped, err = s.board.Merge(saveCtx, classified)
		if err != nil {
			s.logger.Error("merge classified postings", zap.Error(err))
			return scrapeResponse{Error: "failed to persist results"}, http.StatusInternalServerError
		}
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return scrapeResponse{
			Error:   "scrape timed out",
			Jobs:    classified,
			Count:   len(classified),
			Scraped: len(postings),
			Added:   added,
			Skipped: skipped,
		}, http.StatusRequestTimeout
	case ctx.Err() != nil:
		return scrapeResponse{
			Stopped: true,
			Error:   "scraping stopped",
			Jobs:    classified,
			Count:   len(classified),
			Scraped: len(postings),
			Added:   added,
			Skipped: skipped,
		}, http.StatusOK
	}

	s.publishCompletion(req, len(postings), added, skipped)
	return scrapeResponse{
		Success: true,
		Jobs:    classified,
		Count:   len(classified),
		Scraped: len(postings),
		Added:   added,
		Skipped: skipped,
	}, http.StatusOK
}

// RunScheduled executes the default scrape using the persisted settings. It
// is the cron entry point; an already-running scrape makes it a no-op.
func (s *Server) RunScheduled() {
	loadCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	settings, err := s.snapshots.LoadSettings(loadCtx)
	cancel()
	if err != nil {
		s.logger.Error("scheduled scrape: load settings", zap.Error(err))
		return
	}
	req := settings.Defaults
	s.applyDefaults(&req)

	ctx, err := s.beginRun(context.Background())
	if err != nil {
		s.logger.Warn("scheduled scrape skipped, another run is active")
		return
	}
	defer s.endRun()

	outcome, status := s.runScrape(ctx, req)
	s.logger.Info("scheduled scrape finished",
		zap.Int("status", status),
		zap.Int("scraped", outcome.Scraped),
		zap.Int("added", outcome.Added),
		zap.Int("skipped", outcome.Skipped))
}

func (s *Server) stopScrape(w http.ResponseWriter, _ *http.Request) {
	stopped := s.cancelRun()
	if s.orchestrator.Stop() {
		stopped = true
	}
	if !stopped {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "stopped": false, "message": "no scrape in progress"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "stopped": true, "message": "scrape stop requested"})
}

func (s *Server) scrapeStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	active := s.runCancel != nil
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"active": active,
		"state":  string(s.orchestrator.State()),
		"jobs":   s.board.Size(),
	})
}

func (s *Server) listJobs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.board.Snapshot())
}

type moveJobRequest struct {
	ID       string `json:"id"`
	Category string `json:"category"`
}

func (s *Server) moveJob(w http.ResponseWriter, r *http.Request) {
	var req moveJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeError(w, http.StatusBadRequest, "missing job id")
		return
	}
	category, err := jobs.ParseCategory(req.Category)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.board.Move(r.Context(), req.ID, category); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": req.ID, "category": string(category)})
}

func (s *Server) deleteJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if err := s.board.Delete(r.Context(), jobID); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": jobID, "status": "deleted"})
}

func (s *Server) clearJobs(w http.ResponseWriter, r *http.Request) {
	if err := s.board.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.snapshots.LoadSettings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) putSettings(w http.ResponseWriter, r *http.Request) {
	var settings jobs.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if settings.Schedule == "" {
		settings.Schedule = jobs.ScheduleManual
	}
	if err := s.schedule.Apply(settings.Schedule); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.snapshots.SaveSettings(r.Context(), settings); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// beginRun claims the single run slot and returns the context the whole
// scrape-classify-merge sequence lives under.
func (s *Server) beginRun(parent context.Context) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runCancel != nil {
		return nil, scrape.ErrScrapeActive
	}
	ctx, cancel := context.WithTimeout(parent, s.cfg.ServerTimeout())
	s.runCancel = cancel
	return ctx, nil
}

func (s *Server) endRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runCancel != nil {
		s.runCancel()
		s.runCancel = nil
	}
}

func (s *Server) cancelRun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runCancel == nil {
		return false
	}
	s.runCancel()
	return true
}

func (s *Server) applyDefaults(req *jobs.ScrapeRequest) {
	if req.Source == "" {
		req.Source = jobs.SourceFull
	}
	if req.MaxPages <= 0 {
		req.MaxPages = s.cfg.Scraper.MaxPagesDefault
	}
}

func (s *Server) publishCompletion(req jobs.ScrapeRequest, scraped, added, skipped int) {
	if s.publisher == nil || s.cfg.PubSub.TopicName == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	payload := map[string]any{
		"source":  req.Source,
		"query":   req.Query(),
		"scraped": scraped,
		"added":   added,
		"skipped": skipped,
		"at":      s.clock.Now(),
	}
	if _, err := s.publisher.Publish(ctx, s.cfg.PubSub.TopicName, payload); err != nil {
		s.logger.Warn("publish completion event", zap.Error(err))
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("panic", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	n, err := sw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

type requestIDKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
