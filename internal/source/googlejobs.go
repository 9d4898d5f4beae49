package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/pfitan-web/aijobscraper/internal/jobs"
)

const (
	googleJobsName       = "googlejobs"
	googleJobsIDPrefix   = "goo"
	googleJobsDefaultURL = "https://serpapi.com/search.json"
)

// GoogleJobsConfig controls the SerpAPI adapter.
type GoogleJobsConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// GoogleJobs queries the google_jobs engine through SerpAPI. A missing API
// key disables the adapter: it yields an empty result instead of failing,
// so fan-out runs degrade gracefully.
type GoogleJobs struct {
	cfg    GoogleJobsConfig
	client *http.Client
	logger *zap.Logger
}

// NewGoogleJobs builds the adapter.
func NewGoogleJobs(cfg GoogleJobsConfig, logger *zap.Logger) *GoogleJobs {
	if cfg.BaseURL == "" {
		cfg.BaseURL = googleJobsDefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &GoogleJobs{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Name implements jobs.Source.
func (g *GoogleJobs) Name() string { return googleJobsName }

// NeedsSession implements jobs.Source.
func (g *GoogleJobs) NeedsSession() bool { return false }

type serpAPIResponse struct {
	JobsResults []serpAPIJob `json:"jobs_results"`
}

type serpAPIJob struct {
	JobID        string `json:"job_id"`
	Title        string `json:"title"`
	CompanyName  string `json:"company_name"`
	Location     string `json:"location"`
	Description  string `json:"description"`
	ShareLink    string `json:"share_link"`
	Thumbnail    string `json:"thumbnail"`
	RelatedLinks []struct {
		Link string `json:"link"`
	} `json:"related_links"`
	DetectedExtensions struct {
		Salary       string `json:"salary"`
		ScheduleType string `json:"schedule_type"`
	} `json:"detected_extensions"`
}

// Fetch issues a single search; the engine does its own aggregation so
// pagination is not worth the extra quota.
func (g *GoogleJobs) Fetch(ctx context.Context, _ jobs.BrowserSession, req jobs.ScrapeRequest) ([]jobs.Posting, error) {
	if g.cfg.APIKey == "" {
		g.logger.Debug("googlejobs adapter disabled, no API key configured")
		return nil, nil
	}

	location := req.Location
	if location == "" {
		location = "France"
	}
	params := url.Values{}
	params.Set("engine", "google_jobs")
	params.Set("q", req.Query())
	params.Set("location", location)
	params.Set("api_key", g.cfg.APIKey)
	params.Set("hl", "fr")
	params.Set("gl", "fr")
	params.Set("num", "20")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build serpapi request: %w", err)
	}
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("serpapi request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serpapi returned status %d", resp.StatusCode)
	}

	var payload serpAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode serpapi response: %w", err)
	}

	postings := make([]jobs.Posting, 0, len(payload.JobsResults))
	for _, j := range payload.JobsResults {
		link := j.ShareLink
		if len(j.RelatedLinks) > 0 && j.RelatedLinks[0].Link != "" {
			link = j.RelatedLinks[0].Link
		}
		postings = append(postings, jobs.Posting{
			ID:          googleJobsIDPrefix + "-" + j.JobID,
			Title:       j.Title,
			Company:     j.CompanyName,
			Location:    j.Location,
			URL:         link,
			Source:      "Google Jobs",
			Description: j.Description,
			SalaryRange: j.DetectedExtensions.Salary,
			LogoURL:     j.Thumbnail,
		})
	}
	return normalize(postings), nil
}
