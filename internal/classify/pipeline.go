// Package classify scores scraped postings against the user's criteria and
// assigns each one a kanban category.
package classify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pfitan-web/aijobscraper/internal/jobs"
	"github.com/pfitan-web/aijobscraper/internal/metrics"
)

// ErrNoResults is returned when a scrape produced nothing to classify.
var ErrNoResults = errors.New("no postings to classify")

const failedReasoning = "classification failed"

// Pipeline pushes postings through a Scorer one at a time. Sequential on
// purpose: the scoring backend applies per-key rate limits, and a burst of
// parallel calls trips them immediately.
type Pipeline struct {
	scorer jobs.Scorer
	logger *zap.Logger
}

// NewPipeline builds a pipeline over the given scorer.
func NewPipeline(scorer jobs.Scorer, logger *zap.Logger) *Pipeline {
	return &Pipeline{scorer: scorer, logger: logger}
}

// Classify scores every posting and returns one classified posting per input,
// in input order. A posting whose scoring call fails is kept with a zero
// score and parked in the review column rather than dropped. Cancellation,
// whether caught between items or mid scoring call, returns the classified
// prefix together with the context error.
func (p *Pipeline) Classify(ctx context.Context, postings []jobs.Posting, criteria string) ([]jobs.ClassifiedPosting, error) {
	if len(postings) == 0 {
		return nil, ErrNoResults
	}

	classified := make([]jobs.ClassifiedPosting, 0, len(postings))
	for i, posting := range postings {
		if err := ctx.Err(); err != nil {
			p.logger.Info("classification interrupted",
				zap.Int("classified", len(classified)),
				zap.Int("total", len(postings)))
			return classified, fmt.Errorf("classify posting %d/%d: %w", i+1, len(postings), err)
		}

		p.logger.Info("classifying posting",
			zap.Int("index", i+1),
			zap.Int("total", len(postings)),
			zap.String("id", posting.ID),
			zap.String("title", posting.Title))

		item, err := p.classifyOne(ctx, posting, criteria)
		if err != nil {
			p.logger.Info("classification interrupted",
				zap.Int("classified", len(classified)),
				zap.Int("total", len(postings)))
			return classified, fmt.Errorf("classify posting %d/%d: %w", i+1, len(postings), err)
		}
		classified = append(classified, item)
	}
	return classified, nil
}

// classifyOne returns a non-nil error only for cancellation; a plain scoring
// failure downgrades the posting to the review column instead.
func (p *Pipeline) classifyOne(ctx context.Context, posting jobs.Posting, criteria string) (jobs.ClassifiedPosting, error) {
	eval, err := p.scorer.Score(ctx, posting, criteria)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return jobs.ClassifiedPosting{}, ctxErr
		}
		p.logger.Warn("scoring failed, keeping posting for review",
			zap.String("id", posting.ID),
			zap.Error(err))
		metrics.ObserveClassification("failed")
		return jobs.ClassifiedPosting{
			Posting:   posting,
			Score:     0,
			Category:  jobs.CategoryReview,
			Reasoning: failedReasoning,
		}, nil
	}

	// The scorer sometimes extracts details the listing page omitted.
	if posting.ContractType == "" {
		posting.ContractType = eval.ContractType
	}
	if posting.SalaryRange == "" {
		posting.SalaryRange = eval.SalaryRange
	}

	// The category is derived from the score alone; whatever label the
	// scoring backend suggested is ignored so one policy governs the board.
	category := jobs.CategoryForScore(eval.Score)
	metrics.ObserveClassification(string(category))
	return jobs.ClassifiedPosting{
		Posting:       posting,
		Score:         eval.Score,
		Category:      category,
		Reasoning:     eval.Reasoning,
		KeyHighlights: eval.KeyHighlights,
	}, nil
}
