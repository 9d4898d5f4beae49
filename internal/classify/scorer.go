package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pfitan-web/aijobscraper/internal/jobs"
)

const (
	scorePath        = "/api/score-job"
	maxKeyHighlights = 5
)

// HTTPScorerConfig controls the scoring backend client.
type HTTPScorerConfig struct {
	BaseURL  string
	Provider string
	Timeout  time.Duration
}

// HTTPScorer calls the scoring backend, which wraps the actual AI provider.
// One call scores one posting.
type HTTPScorer struct {
	cfg    HTTPScorerConfig
	client *http.Client
}

// NewHTTPScorer builds a scorer client for the configured backend.
func NewHTTPScorer(cfg HTTPScorerConfig) *HTTPScorer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	return &HTTPScorer{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type scoreRequest struct {
	Job      jobs.Posting `json:"job"`
	Criteria string       `json:"criteria"`
	Provider string       `json:"provider,omitempty"`
}

// Score implements jobs.Scorer.
func (s *HTTPScorer) Score(ctx context.Context, posting jobs.Posting, criteria string) (jobs.Evaluation, error) {
	body, err := json.Marshal(scoreRequest{Job: posting, Criteria: criteria, Provider: s.cfg.Provider})
	if err != nil {
		return jobs.Evaluation{}, fmt.Errorf("encode score request: %w", err)
	}

	endpoint := strings.TrimRight(s.cfg.BaseURL, "/") + scorePath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return jobs.Evaluation{}, fmt.Errorf("build score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return jobs.Evaluation{}, fmt.Errorf("score %s: %w", posting.ID, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return jobs.Evaluation{}, fmt.Errorf("score %s: backend returned %s", posting.ID, resp.Status)
	}

	var eval jobs.Evaluation
	if err := json.NewDecoder(resp.Body).Decode(&eval); err != nil {
		return jobs.Evaluation{}, fmt.Errorf("decode score response for %s: %w", posting.ID, err)
	}
	if eval.Score < 0 {
		eval.Score = 0
	}
	if eval.Score > 100 {
		eval.Score = 100
	}
	if len(eval.KeyHighlights) > maxKeyHighlights {
		eval.KeyHighlights = eval.KeyHighlights[:maxKeyHighlights]
	}
	return eval, nil
}
