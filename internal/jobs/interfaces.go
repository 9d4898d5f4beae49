package jobs

import (
	"context"
	"time"
)

// BrowserSession is a shared stateful automation handle borrowed by
// session-based adapters. Adapters open pages but never own or close the
// session; only the orchestrator's cleanup may terminate it.
type BrowserSession interface {
	// NewPage returns a context bound to a fresh browser tab. The returned
	// cancel closes the tab only, never the session.
	NewPage(ctx context.Context) (context.Context, context.CancelFunc, error)
	// Kill tears the whole session down, abandoning any open tabs.
	Kill()
}

// Source is one job-board adapter. Fetch owns its own pagination loop,
// bounded by the request's page budget, and fails independently of its
// siblings. The session argument is nil for API-based adapters.
type Source interface {
	Name() string
	NeedsSession() bool
	Fetch(ctx context.Context, sess BrowserSession, req ScrapeRequest) ([]Posting, error)
}

// Scorer evaluates a single posting against the user's criteria via an
// external scoring service.
type Scorer interface {
	Score(ctx context.Context, p Posting, criteria string) (Evaluation, error)
}

// SnapshotStore persists full board and settings snapshots. Each save is a
// complete overwrite; there are no partial updates.
type SnapshotStore interface {
	SaveBoard(ctx context.Context, snapshot BoardSnapshot) error
	LoadBoard(ctx context.Context) (BoardSnapshot, error)
	SaveSettings(ctx context.Context, settings Settings) error
	LoadSettings(ctx context.Context) (Settings, error)
}

// Publisher pushes scrape-completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Archiver writes raw page snapshots and returns a URI.
type Archiver interface {
	Save(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces unique ID suffixes for postings whose source offers
// no stable identifier.
type IDGenerator interface {
	NewID() (string, error)
}
