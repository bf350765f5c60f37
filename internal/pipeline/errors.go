package pipeline

import "fmt"

// ScrapeError reports a failed snapshot acquisition. The request aborts with
// no partial data published.
type ScrapeError struct {
	URL   string
	Cause error
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scrape failed for %s: %v", e.URL, e.Cause)
}

func (e *ScrapeError) Unwrap() error {
	return e.Cause
}

// PublishError reports a fatal publish failure: the root profile record
// could not be stored, so the caller receives no artifact.
type PublishError struct {
	Label string
	Cause error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish failed for %s: %v", e.Label, e.Cause)
}

func (e *PublishError) Unwrap() error {
	return e.Cause
}
