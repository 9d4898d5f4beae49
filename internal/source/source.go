package source

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/pfitan-web/aijobscraper/internal/jobs"
)

// normalize drops rows that cannot be displayed or deduplicated: every kept
// posting has a non-empty title and URL, and company/location fall back to
// placeholders when the source omits them.
func normalize(postings []jobs.Posting) []jobs.Posting {
	out := postings[:0]
	for _, p := range postings {
		p.Title = strings.TrimSpace(p.Title)
		p.URL = strings.TrimSpace(p.URL)
		if p.Title == "" || p.URL == "" {
			continue
		}
		if strings.TrimSpace(p.Company) == "" {
			p.Company = "unknown"
		}
		if strings.TrimSpace(p.Location) == "" {
			p.Location = "unknown"
		}
		out = append(out, p)
	}
	return out
}

// synthesizeID builds the dedup identity for a posting. Sources with a
// stable native key pass it through; the generator covers the rest so IDs
// never collide across runs.
func synthesizeID(prefix, nativeKey string, ids jobs.IDGenerator) (string, error) {
	key := strings.TrimSpace(nativeKey)
	if key == "" {
		generated, err := ids.NewID()
		if err != nil {
			return "", fmt.Errorf("generate id suffix: %w", err)
		}
		key = generated
	}
	return prefix + "-" + key, nil
}

// pause sleeps a jittered duration between min and max, returning early if
// the context is cancelled. Session-based adapters call this between pages;
// a fixed cadence gets scrapers banned.
func pause(ctx context.Context, min, max time.Duration) {
	delay := min
	if max > min {
		delay += time.Duration(rand.Int63n(int64(max - min)))
	}
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
