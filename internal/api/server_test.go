package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pfitan-web/aijobscraper/internal/classify"
	"github.com/pfitan-web/aijobscraper/internal/clock/system"
	"github.com/pfitan-web/aijobscraper/internal/config"
	"github.com/pfitan-web/aijobscraper/internal/jobs"
	"github.com/pfitan-web/aijobscraper/internal/metrics"
	pubmemory "github.com/pfitan-web/aijobscraper/internal/publisher/memory"
	"github.com/pfitan-web/aijobscraper/internal/scheduler"
	"github.com/pfitan-web/aijobscraper/internal/scrape"
	"github.com/pfitan-web/aijobscraper/internal/source"
	storememory "github.com/pfitan-web/aijobscraper/internal/storage/memory"
	"github.com/pfitan-web/aijobscraper/internal/store"
)

type fakeSource struct {
	name     string
	postings []jobs.Posting
	err      error
	block    chan struct{}
	started  chan struct{}
}

func (f *fakeSource) Name() string       { return f.name }
func (f *fakeSource) NeedsSession() bool { return false }

func (f *fakeSource) Fetch(ctx context.Context, _ jobs.BrowserSession, _ jobs.ScrapeRequest) ([]jobs.Posting, error) {
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.postings, nil
}

type fakeScorer struct {
	score int
	err   error
}

func (f *fakeScorer) Score(context.Context, jobs.Posting, string) (jobs.Evaluation, error) {
	if f.err != nil {
		return jobs.Evaluation{}, f.err
	}
	return jobs.Evaluation{Score: f.score, Reasoning: "scored"}, nil
}

type testEnv struct {
	srv       *httptest.Server
	board     *store.Board
	snapshots *storememory.Store
	publisher *pubmemory.Publisher
}

func newTestEnv(t *testing.T, scorer jobs.Scorer, sources ...jobs.Source) *testEnv {
	t.Helper()
	metrics.Init()

	logger := zap.NewNop()
	snapshots := storememory.NewStore()
	board := store.NewBoard(snapshots, logger)
	publisher := pubmemory.New()

	cfg := config.Config{}
	cfg.Server.Port = 8080
	cfg.Server.TimeoutSeconds = 2
	cfg.Scraper.MaxPagesDefault = 1
	cfg.AI.BackendURL = "http://localhost:3000"
	cfg.Storage.Provider = "memory"
	cfg.Archive.Provider = "none"
	cfg.PubSub.TopicName = "scrape-events"

	orch := scrape.NewOrchestrator(
		source.NewRegistry(sources...),
		func() jobs.BrowserSession { return nil },
		logger,
	)
	server := NewServer(
		orch,
		classify.NewPipeline(scorer, logger),
		board,
		snapshots,
		publisher,
		scheduler.New(func() {}, logger),
		system.New(),
		cfg,
		logger,
	)

	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, board: board, snapshots: snapshots, publisher: publisher}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp, payload
}

func posting(id string) jobs.Posting {
	return jobs.Posting{ID: id, Title: "t", URL: "https://jobs/" + id, Source: "fake"}
}

func TestScrapeEndToEnd(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &fakeScorer{score: 90},
		&fakeSource{name: "alpha", postings: []jobs.Posting{posting("a1"), posting("a2")}},
		&fakeSource{name: "beta", err: errors.New("down")},
	)

	resp, payload := env.do(t, http.MethodPost, "/api/scrape", jobs.ScrapeRequest{Keywords: "go"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, payload["success"])
	require.EqualValues(t, 2, payload["scraped"], "failing source is absorbed")
	require.EqualValues(t, 2, payload["added"])
	require.EqualValues(t, 2, payload["count"])
	require.Len(t, payload["jobs"], 2)

	snap := env.board.Snapshot()
	require.Len(t, snap[jobs.CategoryMatch], 2)

	// A completion event was published.
	require.Len(t, env.publisher.Messages(), 1)

	// Scraping the same postings again adds nothing.
	resp, payload = env.do(t, http.MethodPost, "/api/scrape", jobs.ScrapeRequest{Keywords: "go"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 0, payload["added"])
	require.EqualValues(t, 2, payload["skipped"])
}

func TestScrapeNoResults(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &fakeScorer{score: 90}, &fakeSource{name: "alpha"})

	resp, payload := env.do(t, http.MethodPost, "/api/scrape", jobs.ScrapeRequest{Keywords: "go"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, payload["success"])
	require.Equal(t, "no new jobs found", payload["message"])
	require.EqualValues(t, 0, payload["count"])
	require.NotNil(t, payload["jobs"], "jobs is always an array, never null")
	require.Empty(t, payload["jobs"])
}

func TestScrapeSingleSourceFailure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &fakeScorer{score: 90}, &fakeSource{name: "alpha", err: errors.New("blocked")})

	resp, _ := env.do(t, http.MethodPost, "/api/scrape",
		jobs.ScrapeRequest{Source: "alpha", Keywords: "go"})
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestScrapeConflictWhileRunning(t *testing.T) {
	t.Parallel()

	blocked := &fakeSource{
		name:    "alpha",
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	env := newTestEnv(t, &fakeScorer{score: 90}, blocked)

	type result struct {
		code    int
		payload map[string]any
	}
	first := make(chan result, 1)
	go func() {
		resp, payload := env.do(t, http.MethodPost, "/api/scrape", jobs.ScrapeRequest{Keywords: "go"})
		first <- result{resp.StatusCode, payload}
	}()
	<-blocked.started

	resp, _ := env.do(t, http.MethodPost, "/api/scrape", jobs.ScrapeRequest{Keywords: "go"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	close(blocked.block)
	r := <-first
	require.Equal(t, http.StatusOK, r.code)
}

func TestScrapeStop(t *testing.T) {
	t.Parallel()

	blocked := &fakeSource{
		name:    "alpha",
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	env := newTestEnv(t, &fakeScorer{score: 90}, blocked)

	// Stopping with nothing running reports so.
	resp, payload := env.do(t, http.MethodPost, "/api/scrape/stop", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, payload["success"])
	require.Equal(t, false, payload["stopped"])

	type result struct {
		code    int
		payload map[string]any
	}
	first := make(chan result, 1)
	go func() {
		resp, payload := env.do(t, http.MethodPost, "/api/scrape", jobs.ScrapeRequest{Keywords: "go"})
		first <- result{resp.StatusCode, payload}
	}()
	<-blocked.started

	resp, payload = env.do(t, http.MethodPost, "/api/scrape/stop", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, payload["success"])
	require.Equal(t, true, payload["stopped"])

	select {
	case r := <-first:
		require.Equal(t, http.StatusOK, r.code)
		require.Equal(t, false, r.payload["success"])
		require.Equal(t, true, r.payload["stopped"])
		require.Equal(t, "scraping stopped", r.payload["error"])
	case <-time.After(3 * time.Second):
		t.Fatal("scrape did not unwind after stop")
	}
}

func TestScrapeTimeout(t *testing.T) {
	t.Parallel()

	blocked := &fakeSource{name: "alpha", block: make(chan struct{})}
	defer close(blocked.block)
	env := newTestEnv(t, &fakeScorer{score: 90}, blocked)

	resp, _ := env.do(t, http.MethodPost, "/api/scrape", jobs.ScrapeRequest{Source: "alpha", Keywords: "go"})
	require.Equal(t, http.StatusRequestTimeout, resp.StatusCode)
}

func TestJobsEndpoints(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &fakeScorer{score: 90},
		&fakeSource{name: "alpha", postings: []jobs.Posting{posting("a1"), posting("a2")}})

	resp, _ := env.do(t, http.MethodPost, "/api/scrape", jobs.ScrapeRequest{Keywords: "go"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/jobs", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/jobs/move", moveJobRequest{ID: "a1", Category: "Applied"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "a1", env.board.Snapshot()[jobs.CategoryApplied][0].ID)

	resp, _ = env.do(t, http.MethodPost, "/api/jobs/move", moveJobRequest{ID: "a1", Category: "Bogus"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/jobs/move", moveJobRequest{ID: "missing", Category: "Applied"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodDelete, "/api/jobs/a2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, env.board.Size())

	resp, _ = env.do(t, http.MethodPost, "/api/jobs/clear", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Zero(t, env.board.Size())
}

func TestSettingsRoundTrip(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &fakeScorer{score: 90}, &fakeSource{name: "alpha"})

	resp, _ := env.do(t, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	settings := jobs.Settings{
		Schedule: jobs.ScheduleDaily,
		Criteria: "go backend",
		Defaults: jobs.ScrapeRequest{Keywords: "go", MaxPages: 2},
	}
	resp, payload := env.do(t, http.MethodPut, "/api/settings", settings)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "go backend", payload["criteria"])

	resp, _ = env.do(t, http.MethodPut, "/api/settings", jobs.Settings{Schedule: "hourly"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	got, err := env.snapshots.LoadSettings(context.Background())
	require.NoError(t, err)
	require.Equal(t, jobs.ScheduleDaily, got.Schedule)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &fakeScorer{score: 90}, &fakeSource{name: "alpha"})

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(env.srv.URL + path)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		require.NoError(t, resp.Body.Close())
	}
}

func TestRequestIDHeaderSet(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &fakeScorer{score: 90}, &fakeSource{name: "alpha"})
	resp, err := http.Get(env.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
