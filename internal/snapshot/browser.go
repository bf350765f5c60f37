// Package snapshot - browser.go renders profile pages in a headless browser.
package snapshot

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/chromedp/chromedp"
)

// DefaultNavTimeout bounds navigation plus initial page load.
const DefaultNavTimeout = 30 * time.Second

// DefaultReadyTimeout bounds the wait for client-side rendering to settle.
const DefaultReadyTimeout = 8 * time.Second

// readyPollInterval is how often the readiness condition is re-checked.
const readyPollInterval = 250 * time.Millisecond

// BrowserSource acquires snapshots by rendering pages in headless
// Chrome/Chromium. Requires a Chrome binary on the system.
type BrowserSource struct {
	// NavTimeout bounds navigation; zero means DefaultNavTimeout.
	NavTimeout time.Duration
	// ReadyTimeout bounds the post-navigation readiness poll; zero means
	// DefaultReadyTimeout.
	ReadyTimeout time.Duration
	// ReadySelector is the element whose presence signals that client-side
	// rendering has finished. On timeout the page is used as-is and missing
	// fields resolve to sentinels downstream.
	ReadySelector string
	// CaptureScreenshot attaches a full-page screenshot to the snapshot for
	// diagnostic sinks.
	CaptureScreenshot bool
	Verbose           bool
}

// Acquire renders the page and returns a DOM snapshot of the result.
func (s *BrowserSource) Acquire(ctx context.Context, url string) (Snapshot, error) {
	navTimeout := s.NavTimeout
	if navTimeout == 0 {
		navTimeout = DefaultNavTimeout
	}

	if s.Verbose {
		log.Printf("[BROWSER] Rendering: %s", url)
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, navTimeout)
	defer cancel()

	var html string
	var shot []byte

	actions := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			s.awaitReady(ctx)
			return nil
		}),
		chromedp.OuterHTML("html", &html),
	}
	if s.CaptureScreenshot {
		actions = append(actions, chromedp.CaptureScreenshot(&shot))
	}

	if err := chromedp.Run(browserCtx, actions...); err != nil {
		return nil, &Error{URL: url, Message: "browser rendering failed", Cause: err}
	}

	if s.Verbose {
		log.Printf("[BROWSER] Rendered HTML: %d bytes", len(html))
	}

	snap, err := FromHTML(html)
	if err != nil {
		return nil, &Error{URL: url, Message: "failed to parse rendered HTML", Cause: err}
	}
	return snap.WithScreenshot(shot), nil
}

// awaitReady polls for the readiness selector with a hard bound instead of a
// blind fixed sleep. Timing out is not an error: extraction proceeds and
// absent fields resolve to sentinels.
func (s *BrowserSource) awaitReady(ctx context.Context) {
	if s.ReadySelector == "" {
		return
	}
	readyTimeout := s.ReadyTimeout
	if readyTimeout == 0 {
		readyTimeout = DefaultReadyTimeout
	}

	deadline := time.Now().Add(readyTimeout)
	expr := fmt.Sprintf("document.querySelector(%q) !== null", s.ReadySelector)

	for time.Now().Before(deadline) {
		var found bool
		if err := chromedp.Evaluate(expr, &found).Do(ctx); err == nil && found {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(readyPollInterval):
		}
	}
	if s.Verbose {
		log.Printf("[BROWSER] Readiness selector %q not found within %s, proceeding", s.ReadySelector, readyTimeout)
	}
}
