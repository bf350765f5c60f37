// Package snapshot acquires rendered-page snapshots and exposes a read-only
// query contract over them.
package snapshot

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Source produces a rendered snapshot for a URL. The returned snapshot is
// exclusively owned by the caller and must be released on every exit path.
type Source interface {
	Acquire(ctx context.Context, url string) (Snapshot, error)
}

// Snapshot is a read-only view over a rendered DOM. Queries never mutate the
// snapshot.
type Snapshot interface {
	// QueryText returns the trimmed text of the first element matching the
	// selector, reporting whether one was found.
	QueryText(selector string) (string, bool)
	// QueryAll returns one sub-snapshot per matching element, in document
	// order.
	QueryAll(selector string) []Snapshot
	// Text returns the trimmed text of the snapshot's own root element.
	Text() string
	// Attr returns the named attribute of the first element matching the
	// selector.
	Attr(selector, name string) (string, bool)
	// HTML returns the rendered markup the snapshot was built from.
	HTML() string
	// Screenshot returns the captured page image, or nil when the source did
	// not take one.
	Screenshot() []byte
	// Release frees the resources backing the snapshot.
	Release()
}

// Error wraps a snapshot acquisition failure with the URL it was for.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("snapshot error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("snapshot error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// DOMSnapshot is a Snapshot over pre-rendered HTML, backed by a parsed
// goquery document. The browser source wraps its rendered output in one;
// tests construct them directly from fixture markup.
type DOMSnapshot struct {
	html       string
	doc        *goquery.Document
	selection  *goquery.Selection
	screenshot []byte
}

// FromHTML parses rendered markup into a DOMSnapshot.
func FromHTML(html string) (*DOMSnapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &DOMSnapshot{html: html, doc: doc, selection: doc.Selection}, nil
}

// WithScreenshot attaches a captured page image to the snapshot.
func (s *DOMSnapshot) WithScreenshot(img []byte) *DOMSnapshot {
	s.screenshot = img
	return s
}

func (s *DOMSnapshot) QueryText(selector string) (string, bool) {
	sel := s.selection.Find(selector)
	if sel.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(sel.First().Text()), true
}

func (s *DOMSnapshot) QueryAll(selector string) []Snapshot {
	var out []Snapshot
	s.selection.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		out = append(out, &DOMSnapshot{html: s.html, doc: s.doc, selection: sel})
	})
	return out
}

func (s *DOMSnapshot) Text() string {
	return strings.TrimSpace(s.selection.Text())
}

func (s *DOMSnapshot) Attr(selector, name string) (string, bool) {
	sel := s.selection.Find(selector)
	if sel.Length() == 0 {
		return "", false
	}
	return sel.First().Attr(name)
}

func (s *DOMSnapshot) HTML() string {
	return s.html
}

func (s *DOMSnapshot) Screenshot() []byte {
	return s.screenshot
}

// Release is a no-op for parsed-HTML snapshots; the browser context they came
// from is torn down by the source before Acquire returns.
func (s *DOMSnapshot) Release() {}
