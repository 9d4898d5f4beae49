package scrape

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pfitan-web/aijobscraper/internal/jobs"
	"github.com/pfitan-web/aijobscraper/internal/metrics"
	"github.com/pfitan-web/aijobscraper/internal/source"
)

// State describes what the orchestrator is currently doing. There is at most
// one run in flight at any time.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateStopped   State = "stopped"
	StateFailed    State = "failed"
)

// ErrScrapeActive is returned by Run when another run is already in flight.
var ErrScrapeActive = errors.New("a scrape is already running")

// SessionFactory builds a browser session on demand. The orchestrator only
// invokes it when at least one selected adapter needs a real browser.
type SessionFactory func() jobs.BrowserSession

// Orchestrator fans a scrape request out over the registered source adapters
// and owns the lifecycle of the browser session they share.
type Orchestrator struct {
	registry *source.Registry
	sessions SessionFactory
	logger   *zap.Logger

	mu      sync.Mutex
	state   State
	cancel  context.CancelFunc
	session jobs.BrowserSession
}

// NewOrchestrator builds an orchestrator over the given adapter registry.
func NewOrchestrator(registry *source.Registry, sessions SessionFactory, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		sessions: sessions,
		logger:   logger,
		state:    StateIdle,
	}
}

// State reports the phase of the most recent run.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Run executes the request and returns the postings gathered across all
// selected sources. A single-source request propagates that adapter's error;
// a full fan-out absorbs individual adapter failures and only fails when the
// run as a whole is cancelled. Only one run may be active at a time.
func (o *Orchestrator) Run(ctx context.Context, req jobs.ScrapeRequest) ([]jobs.Posting, error) {
	sources, err := o.selectSources(req)
	if err != nil {
		return nil, err
	}

	runCtx, err := o.begin(ctx, sources)
	if err != nil {
		return nil, err
	}
	defer o.finish()

	start := time.Now()
	metrics.IncActiveRuns()
	defer metrics.DecActiveRuns()

	var postings []jobs.Posting
	if req.IsFanOut() {
		postings = o.fanOut(runCtx, sources, req)
	} else {
		postings, err = o.single(runCtx, sources[0], req)
	}
	metrics.ObserveRun(time.Since(start))

	if cancelErr := runCtx.Err(); cancelErr != nil {
		o.setState(StateStopped)
		return postings, fmt.Errorf("scrape interrupted: %w", cancelErr)
	}
	if err != nil {
		o.setState(StateFailed)
		return nil, err
	}
	o.setState(StateCompleted)
	return postings, nil
}

// Stop aborts the active run, if any, and tears down the shared browser. It
// reports whether a run was actually in flight; calling it while idle is
// harmless.
func (o *Orchestrator) Stop() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateRunning {
		return false
	}
	o.logger.Info("stopping active scrape")
	o.cancel()
	if o.session != nil {
		o.session.Kill()
	}
	return true
}

func (o *Orchestrator) selectSources(req jobs.ScrapeRequest) ([]jobs.Source, error) {
	if req.IsFanOut() {
		return o.registry.All(), nil
	}
	s, err := o.registry.Lookup(req.Source)
	if err != nil {
		return nil, err
	}
	return []jobs.Source{s}, nil
}

// begin transitions to running and lazily creates the browser session when
// any selected adapter asks for one.
func (o *Orchestrator) begin(ctx context.Context, sources []jobs.Source) (context.Context, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateRunning {
		return nil, ErrScrapeActive
	}

	runCtx, cancel := context.WithCancel(ctx)
	o.state = StateRunning
	o.cancel = cancel

	for _, s := range sources {
		if s.NeedsSession() {
			o.session = o.sessions()
			break
		}
	}
	return runCtx, nil
}

func (o *Orchestrator) finish() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session != nil {
		o.session.Kill()
		o.session = nil
	}
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

func (o *Orchestrator) single(ctx context.Context, s jobs.Source, req jobs.ScrapeRequest) ([]jobs.Posting, error) {
	postings, err := o.runSource(ctx, s, req)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", s.Name(), err)
	}
	return postings, nil
}

type fanOutResult struct {
	name     string
	postings []jobs.Posting
	err      error
}

// fanOut runs every adapter concurrently. A failing adapter contributes
// nothing; it never sinks the run.
func (o *Orchestrator) fanOut(ctx context.Context, sources []jobs.Source, req jobs.ScrapeRequest) []jobs.Posting {
	results := make(chan fanOutResult, len(sources))
	var wg sync.WaitGroup
	for _, s := range sources {
		wg.Add(1)
		go func(s jobs.Source) {
			defer wg.Done()
			postings, err := o.runSource(ctx, s, req)
			results <- fanOutResult{name: s.Name(), postings: postings, err: err}
		}(s)
	}
	wg.Wait()
	close(results)

	var all []jobs.Posting
	for r := range results {
		if r.err != nil {
			o.logger.Warn("source failed during fan-out",
				zap.String("source", r.name),
				zap.Error(r.err))
			metrics.ObserveSourceError(r.name)
			continue
		}
		all = append(all, r.postings...)
	}
	return all
}

func (o *Orchestrator) runSource(ctx context.Context, s jobs.Source, req jobs.ScrapeRequest) ([]jobs.Posting, error) {
	o.mu.Lock()
	sess := o.session
	o.mu.Unlock()

	o.logger.Info("scraping source",
		zap.String("source", s.Name()),
		zap.String("query", req.Query()),
		zap.Int("max_pages", req.MaxPages))

	postings, err := s.Fetch(ctx, sess, req)
	if err != nil {
		return nil, err
	}
	o.logger.Info("source finished",
		zap.String("source", s.Name()),
		zap.Int("postings", len(postings)))
	metrics.ObservePostings(s.Name(), len(postings))
	return postings, nil
}
