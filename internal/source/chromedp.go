package source

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/pfitan-web/aijobscraper/internal/jobs"
)

// awaitPromise makes chromedp.Evaluate wait for the script's promise to
// settle before unmarshalling the result.
func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

// archivePage snapshots the rendered DOM into the archiver. Archiving is
// best effort: failures are logged, never propagated.
func archivePage(ctx, pageCtx context.Context, archiver jobs.Archiver, logger *zap.Logger, adapter string, page int) {
	if archiver == nil {
		return
	}
	var html string
	if err := chromedp.Run(pageCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		logger.Debug("page snapshot failed", zap.String("adapter", adapter), zap.Error(err))
		return
	}
	path := fmt.Sprintf("%s/page-%d.html", adapter, page+1)
	uri, err := archiver.Save(ctx, path, "text/html; charset=utf-8", []byte(html))
	if err != nil {
		logger.Warn("page archive failed", zap.String("adapter", adapter), zap.Error(err))
		return
	}
	logger.Debug("page archived", zap.String("adapter", adapter), zap.String("uri", uri))
}
