// Package session owns the shared headless browser handle used by
// session-based adapters. The orchestrator creates one Browser per run,
// adapters borrow it to open pages, and only the orchestrator kills it.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Config controls browser behavior.
type Config struct {
	UserAgent         string
	ExecutablePath    string
	NavigationTimeout time.Duration
}

// Browser wraps a chromedp exec allocator. The allocator (and the OS-level
// Chrome process) is spawned lazily on the first NewPage call so API-only
// runs never launch a browser.
type Browser struct {
	cfg Config

	mu          sync.Mutex
	allocator   context.Context
	allocCancel context.CancelFunc
	killed      bool
}

// New creates an unstarted Browser.
func New(cfg Config) *Browser {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 60 * time.Second
	}
	return &Browser{cfg: cfg}
}

// NewPage returns a context bound to a fresh tab, with the configured
// navigation timeout applied and the network domain plus user-agent
// override already set up. The returned cancel closes the tab only.
func (b *Browser) NewPage(ctx context.Context) (context.Context, context.CancelFunc, error) {
	alloc, err := b.ensureStarted()
	if err != nil {
		return nil, nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(alloc)
	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, b.cfg.NavigationTimeout)

	// Propagate caller cancellation into the tab: chromedp contexts descend
	// from the allocator, not from ctx.
	stop := context.AfterFunc(ctx, timeoutCancel)

	cancel := func() {
		stop()
		timeoutCancel()
		tabCancel()
	}

	if err := chromedp.Run(tabCtx, b.setup()); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("prepare page: %w", err)
	}
	return tabCtx, cancel, nil
}

// setup enables the network domain and applies the user-agent override on a
// fresh tab.
func (b *Browser) setup() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if b.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(b.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

// Kill hard-terminates the underlying browser process. It is idempotent and
// safe to call on a Browser that never started.
func (b *Browser) Kill() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.killed = true
	if b.allocCancel != nil {
		b.allocCancel()
		b.allocCancel = nil
		b.allocator = nil
	}
}

// Active reports whether the browser process is currently running.
func (b *Browser) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.allocator != nil
}

func (b *Browser) ensureStarted() (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.killed {
		return nil, fmt.Errorf("browser session already terminated")
	}
	if b.allocator != nil {
		return b.allocator, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if b.cfg.ExecutablePath != "" {
		opts = append(opts, chromedp.ExecPath(b.cfg.ExecutablePath))
	}
	b.allocator, b.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	return b.allocator, nil
}
