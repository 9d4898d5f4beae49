package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/pfitan-web/aijobscraper/internal/jobs"
)

const (
	customName        = "custom"
	customIDPrefix    = "univ"
	customMaxBodyText = 15000
)

// Custom renders one arbitrary URL on the shared session and yields a
// single posting whose description is the visible page text, leaving the
// structuring work to the classification stage.
type Custom struct {
	ids    jobs.IDGenerator
	logger *zap.Logger
}

// NewCustom builds the adapter.
func NewCustom(ids jobs.IDGenerator, logger *zap.Logger) *Custom {
	return &Custom{ids: ids, logger: logger}
}

// Name implements jobs.Source.
func (c *Custom) Name() string { return customName }

// NeedsSession implements jobs.Source.
func (c *Custom) NeedsSession() bool { return true }

// Fetch implements jobs.Source. The target URL rides in the request's
// Keywords field.
func (c *Custom) Fetch(ctx context.Context, sess jobs.BrowserSession, req jobs.ScrapeRequest) ([]jobs.Posting, error) {
	target := strings.TrimSpace(req.Keywords)
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		// Keyword searches fan out over every adapter; only an explicit
		// request against this one makes a non-URL an error.
		if req.IsFanOut() {
			c.logger.Debug("custom adapter skipped, keywords are not a URL")
			return nil, nil
		}
		return nil, fmt.Errorf("custom source requires an absolute URL, got %q", target)
	}
	if sess == nil {
		return nil, fmt.Errorf("custom source requires a browser session")
	}

	pageCtx, cancel, err := sess.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("custom open page: %w", err)
	}
	defer cancel()

	var title, body string
	if err := chromedp.Run(pageCtx,
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Title(&title),
		chromedp.Evaluate(fmt.Sprintf(`document.body.innerText.substring(0, %d)`, customMaxBodyText), &body),
	); err != nil {
		return nil, fmt.Errorf("custom render %s: %w", target, err)
	}

	id, err := synthesizeID(customIDPrefix, "", c.ids)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(title) == "" {
		title = "Web Page"
	}
	return normalize([]jobs.Posting{{
		ID:          id,
		Title:       title,
		URL:         target,
		Source:      "Custom URL",
		Description: body,
	}}), nil
}
