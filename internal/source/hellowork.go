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
	helloWorkName      = "hellowork"
	helloWorkIDPrefix  = "hw"
	helloWorkSearchURL = "https://www.hellowork.com/fr-fr/emploi/recherche.html"
)

// helloworkDateParams maps the published-date filter onto HelloWork's d
// query values.
var helloworkDateParams = map[string]string{
	"24h": "24h",
	"3d":  "3j",
	"7d":  "7j",
}

// autoScrollJS scrolls to the bottom of the listing so lazily rendered
// cards are present before extraction.
const autoScrollJS = `new Promise((resolve) => {
	let total = 0;
	const distance = 150;
	const timer = setInterval(() => {
		const height = document.body.scrollHeight;
		window.scrollBy(0, distance);
		total += distance;
		if (total >= height - window.innerHeight - 100) {
			clearInterval(timer);
			resolve(true);
		}
	}, 100);
})`

// helloworkExtractJS pulls the listing cards into plain objects. Tags carry
// both salary and contract type; the euro sign tells them apart.
const helloworkExtractJS = `Array.from(document.querySelectorAll('li[data-id]')).map(card => {
	const tags = Array.from(card.querySelectorAll('.tag')).map(t => t.innerText.trim());
	return {
		nativeId: card.getAttribute('data-id') || '',
		title: card.querySelector('h3')?.innerText.trim() || '',
		company: card.querySelector('[data-cy="companyName"]')?.innerText.trim() || '',
		location: card.querySelector('[data-cy="localization"]')?.innerText.trim() || '',
		url: card.querySelector('a')?.href || '',
		salary: tags.find(t => t.includes('€')) || '',
		contract: tags.find(t => t.length < 15 && !t.includes('€')) || '',
		logoUrl: card.querySelector('img')?.src || ''
	};
})`

// nextPageClickJS clicks the pagination link and reports whether one existed.
const nextPageClickJS = `(() => {
	const next = document.querySelector('nav[aria-label="Pagination"] a:last-child');
	if (next) { next.click(); return true; }
	return false;
})()`

type helloworkCard struct {
	NativeID string `json:"nativeId"`
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location"`
	URL      string `json:"url"`
	Salary   string `json:"salary"`
	Contract string `json:"contract"`
	LogoURL  string `json:"logoUrl"`
}

// HelloWork drives the shared browser session through the HelloWork search
// results, one page at a time.
type HelloWork struct {
	ids      jobs.IDGenerator
	logger   *zap.Logger
	archiver jobs.Archiver
}

// NewHelloWork builds the adapter. The archiver may be nil.
func NewHelloWork(ids jobs.IDGenerator, logger *zap.Logger, archiver jobs.Archiver) *HelloWork {
	return &HelloWork{ids: ids, logger: logger, archiver: archiver}
}

// Name implements jobs.Source.
func (h *HelloWork) Name() string { return helloWorkName }

// NeedsSession implements jobs.Source.
func (h *HelloWork) NeedsSession() bool { return true }

// Fetch implements jobs.Source.
func (h *HelloWork) Fetch(ctx context.Context, sess jobs.BrowserSession, req jobs.ScrapeRequest) ([]jobs.Posting, error) {
	if sess == nil {
		return nil, fmt.Errorf("hellowork requires a browser session")
	}
	pageCtx, cancel, err := sess.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("hellowork open page: %w", err)
	}
	defer cancel()

	if err := chromedp.Run(pageCtx,
		chromedp.Navigate(h.searchURL(req)),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("hellowork navigate: %w", err)
	}
	// Best effort cookie banner dismissal; absence is not an error.
	_ = chromedp.Run(pageCtx, chromedp.Click("#onetrust-accept-btn-handler", chromedp.ByID, chromedp.AtLeast(0)))

	var all []jobs.Posting
	for page := 0; page < req.MaxPages; page++ {
		if ctx.Err() != nil {
			return all, fmt.Errorf("hellowork fetch canceled: %w", ctx.Err())
		}

		var cards []helloworkCard
		var scrolled bool
		if err := chromedp.Run(pageCtx,
			chromedp.Evaluate(autoScrollJS, &scrolled, awaitPromise),
			chromedp.Evaluate(helloworkExtractJS, &cards),
		); err != nil {
			return all, fmt.Errorf("hellowork extract page %d: %w", page+1, err)
		}
		postings, err := h.toPostings(cards)
		if err != nil {
			return all, err
		}
		if len(postings) == 0 {
			break
		}
		all = append(all, postings...)
		archivePage(ctx, pageCtx, h.archiver, h.logger, helloWorkName, page)

		if page == req.MaxPages-1 {
			break
		}
		var clicked bool
		if err := chromedp.Run(pageCtx, chromedp.Evaluate(nextPageClickJS, &clicked)); err != nil || !clicked {
			break
		}
		pause(ctx, 2*time.Second, 4*time.Second)
	}
	return all, nil
}

func (h *HelloWork) toPostings(cards []helloworkCard) ([]jobs.Posting, error) {
	postings := make([]jobs.Posting, 0, len(cards))
	for _, c := range cards {
		id, err := synthesizeID(helloWorkIDPrefix, c.NativeID, h.ids)
		if err != nil {
			return nil, err
		}
		company := c.Company
		if company == "" {
			company = "Confidentiel"
		}
		postings = append(postings, jobs.Posting{
			ID:           id,
			Title:        c.Title,
			Company:      company,
			Location:     c.Location,
			URL:          c.URL,
			Source:       "Hellowork",
			SalaryRange:  c.Salary,
			ContractType: c.Contract,
			LogoURL:      c.LogoURL,
			IsEasyApply:  true,
		})
	}
	return normalize(postings), nil
}

func (h *HelloWork) searchURL(req jobs.ScrapeRequest) string {
	location := req.Location
	if location == "" {
		location = "France"
	}
	d := "all"
	if mapped, ok := helloworkDateParams[req.PublishedDate]; ok {
		d = mapped
	}
	params := url.Values{}
	params.Set("k", req.Query())
	params.Set("l", location)
	params.Set("d", d)
	if req.Radius != "" && req.Radius != "any" {
		params.Set("r", req.Radius)
	}
	return helloWorkSearchURL + "?" + params.Encode()
}
