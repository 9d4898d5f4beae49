package source

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/pfitan-web/aijobscraper/internal/jobs"
)

const (
	jobijobaName      = "jobijoba"
	jobijobaIDPrefix  = "jj"
	jobijobaSearchURL = "https://www.jobijoba.com/fr/emploi"
)

const jobijobaExtractJS = `Array.from(document.querySelectorAll('article.offer')).map(el => {
	const link = el.querySelector('h3 a');
	return {
		title: link?.innerText.trim() || '',
		company: el.querySelector('.compagny')?.innerText.trim() || '',
		location: el.querySelector('.place')?.innerText.trim() || '',
		url: link?.href || '',
		logoUrl: el.querySelector('img.logo')?.src || ''
	};
})`

const jobijobaNextJS = `(() => {
	const next = document.querySelector('.pagination .next a');
	if (next) { next.click(); return true; }
	return false;
})()`

type jobijobaCard struct {
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location"`
	URL      string `json:"url"`
	LogoURL  string `json:"logoUrl"`
}

// Jobijoba drives the shared browser session through the Jobijoba search
// results. Cards carry no stable native key, so IDs are generated.
type Jobijoba struct {
	ids      jobs.IDGenerator
	logger   *zap.Logger
	archiver jobs.Archiver
}

// NewJobijoba builds the adapter. The archiver may be nil.
func NewJobijoba(ids jobs.IDGenerator, logger *zap.Logger, archiver jobs.Archiver) *Jobijoba {
	return &Jobijoba{ids: ids, logger: logger, archiver: archiver}
}

// Name implements jobs.Source.
func (j *Jobijoba) Name() string { return jobijobaName }

// NeedsSession implements jobs.Source.
func (j *Jobijoba) NeedsSession() bool { return true }

// Fetch implements jobs.Source.
func (j *Jobijoba) Fetch(ctx context.Context, sess jobs.BrowserSession, req jobs.ScrapeRequest) ([]jobs.Posting, error) {
	if sess == nil {
		return nil, fmt.Errorf("jobijoba requires a browser session")
	}
	pageCtx, cancel, err := sess.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("jobijoba open page: %w", err)
	}
	defer cancel()

	if err := chromedp.Run(pageCtx,
		chromedp.Navigate(j.searchURL(req)),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("jobijoba navigate: %w", err)
	}

	var all []jobs.Posting
	for page := 0; page < req.MaxPages; page++ {
		if ctx.Err() != nil {
			return all, fmt.Errorf("jobijoba fetch canceled: %w", ctx.Err())
		}

		var cards []jobijobaCard
		var scrolled bool
		if err := chromedp.Run(pageCtx,
			chromedp.Evaluate(autoScrollJS, &scrolled, awaitPromise),
			chromedp.Evaluate(jobijobaExtractJS, &cards),
		); err != nil {
			return all, fmt.Errorf("jobijoba extract page %d: %w", page+1, err)
		}
		postings, err := j.toPostings(cards)
		if err != nil {
			return all, err
		}
		if len(postings) == 0 {
			break
		}
		all = append(all, postings...)
		archivePage(ctx, pageCtx, j.archiver, j.logger, jobijobaName, page)

		if page == req.MaxPages-1 {
			break
		}
		var clicked bool
		if err := chromedp.Run(pageCtx, chromedp.Evaluate(jobijobaNextJS, &clicked)); err != nil || !clicked {
			break
		}
		pause(ctx, 2*time.Second, 3*time.Second)
	}
	return all, nil
}

func (j *Jobijoba) toPostings(cards []jobijobaCard) ([]jobs.Posting, error) {
	postings := make([]jobs.Posting, 0, len(cards))
	for _, c := range cards {
		id, err := synthesizeID(jobijobaIDPrefix, "", j.ids)
		if err != nil {
			return nil, err
		}
		location := c.Location
		if location == "" {
			location = "France"
		}
		postings = append(postings, jobs.Posting{
			ID:       id,
			Title:    c.Title,
			Company:  c.Company,
			Location: location,
			URL:      c.URL,
			Source:   "Jobijoba",
			LogoURL:  c.LogoURL,
		})
	}
	return normalize(postings), nil
}

func (j *Jobijoba) searchURL(req jobs.ScrapeRequest) string {
	location := req.Location
	if location == "" {
		location = "France"
	}
	params := url.Values{}
	params.Set("what", req.Query())
	params.Set("where", location)
	return jobijobaSearchURL + "?" + params.Encode()
}
