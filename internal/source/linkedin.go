package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/pfitan-web/aijobscraper/internal/jobs"
)

const (
	linkedinName        = "linkedin"
	linkedinIDPrefix    = "lin"
	linkedinDefaultURL  = "https://www.linkedin.com/jobs-guest/jobs/api/seeMoreJobPostings/search/"
	linkedinJobsPerPage = 25
)

// linkedinDateParams maps the published-date filter onto LinkedIn's f_TPR
// (time posted range) query values.
var linkedinDateParams = map[string]string{
	"24h": "r86400",
	"3d":  "r259200",
	"7d":  "r604800",
	"30d": "r2592000",
}

// LinkedInConfig controls the guest-listing adapter.
type LinkedInConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// LinkedIn scrapes the public guest listing endpoint over plain HTTP. No
// browser session and no authentication are involved.
type LinkedIn struct {
	cfg    LinkedInConfig
	ids    jobs.IDGenerator
	logger *zap.Logger
	base   *colly.Collector
}

// NewLinkedIn builds the adapter.
func NewLinkedIn(cfg LinkedInConfig, ids jobs.IDGenerator, logger *zap.Logger) *LinkedIn {
	if cfg.BaseURL == "" {
		cfg.BaseURL = linkedinDefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.SetRequestTimeout(cfg.Timeout)
	return &LinkedIn{cfg: cfg, ids: ids, logger: logger, base: c}
}

// Name implements jobs.Source.
func (l *LinkedIn) Name() string { return linkedinName }

// NeedsSession implements jobs.Source.
func (l *LinkedIn) NeedsSession() bool { return false }

// Fetch pages through the guest endpoint until the page budget is spent or a
// page comes back empty.
func (l *LinkedIn) Fetch(ctx context.Context, _ jobs.BrowserSession, req jobs.ScrapeRequest) ([]jobs.Posting, error) {
	var all []jobs.Posting
	for page := 0; page < req.MaxPages; page++ {
		if ctx.Err() != nil {
			return all, fmt.Errorf("linkedin fetch canceled: %w", ctx.Err())
		}
		postings, err := l.fetchPage(ctx, req, page)
		if err != nil {
			return all, fmt.Errorf("linkedin page %d: %w", page+1, err)
		}
		if len(postings) == 0 {
			break
		}
		all = append(all, postings...)
		if page < req.MaxPages-1 {
			pause(ctx, time.Second, 2*time.Second)
		}
	}
	return all, nil
}

func (l *LinkedIn) fetchPage(ctx context.Context, req jobs.ScrapeRequest, page int) ([]jobs.Posting, error) {
	var (
		postings []jobs.Posting
		parseErr error
	)
	collector := l.base.Clone()
	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept-Language", "fr-FR,fr;q=0.9,en-US;q=0.8,en;q=0.7")
		r.Headers.Set("Referer", "https://www.linkedin.com/jobs/search")
	})
	collector.OnHTML("li", func(e *colly.HTMLElement) {
		title := strings.TrimSpace(e.ChildText(".base-search-card__title"))
		link := e.ChildAttr("a.base-card__full-link", "href")
		if title == "" || link == "" {
			return
		}
		id, err := synthesizeID(linkedinIDPrefix, "", l.ids)
		if err != nil {
			parseErr = err
			return
		}
		logo := e.ChildAttr("img.artdeco-entity-lockup__image", "data-delayed-url")
		if logo == "" {
			logo = e.ChildAttr("img.artdeco-entity-lockup__image", "src")
		}
		posted := strings.TrimSpace(e.ChildText("time"))
		if posted == "" {
			posted = "recently"
		}
		postings = append(postings, jobs.Posting{
			ID:          id,
			Title:       title,
			Company:     strings.TrimSpace(e.ChildText(".base-search-card__subtitle")),
			Location:    strings.TrimSpace(e.ChildText(".job-search-card__location")),
			URL:         strings.SplitN(link, "?", 2)[0],
			Source:      "LinkedIn",
			LogoURL:     logo,
			Description: "Posted: " + posted,
		})
	})

	if err := l.visit(ctx, collector, l.pageURL(req, page)); err != nil {
		return nil, err
	}
	if parseErr != nil {
		return nil, parseErr
	}
	return normalize(postings), nil
}

func (l *LinkedIn) pageURL(req jobs.ScrapeRequest, page int) string {
	location := req.Location
	if location == "" {
		location = "France"
	}
	params := url.Values{}
	params.Set("keywords", req.Query())
	params.Set("location", location)
	params.Set("start", fmt.Sprint(page*linkedinJobsPerPage))
	if tpr, ok := linkedinDateParams[req.PublishedDate]; ok {
		params.Set("f_TPR", tpr)
	}
	return l.cfg.BaseURL + "?" + params.Encode()
}

// visit runs the collector while staying responsive to cancellation; colly's
// Visit itself does not take a context.
func (l *LinkedIn) visit(ctx context.Context, collector *colly.Collector, pageURL string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(pageURL)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("visit canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("visit %s: %w", pageURL, err)
		}
		return nil
	}
}
