// Package extract turns a rendered profile-page snapshot into structured
// records using a fixed selector contract.
//
// Every field has one rule; when the element is absent the field takes a
// sentinel default ("N/A" for scalars, an empty slice for lists) instead of
// failing. Partial markup from A/B layouts or logged-out variants degrades
// gracefully rather than aborting the pipeline. Extraction is read-only over
// the snapshot and, once a snapshot exists, cannot fail.
package extract

import (
	"github.com/daniela/profile-archiver/internal/record"
	"github.com/daniela/profile-archiver/internal/snapshot"
)

// Profile page selectors. Multiple comma-joined alternatives cover layout
// variants; goquery matches the first present.
const (
	NameSelector        = ".profile-name, h1[itemprop='name']"
	HandleSelector      = ".profile-handle, .username"
	HeadingSelector     = ".profile-heading, .tagline"
	RatingCountSelector = ".rating-count, .reviews-count"
	SkillSelector       = ".skills li, .skill-tag"
	PortfolioSelector   = ".portfolio .item-title, .portfolio-item h3"
	ListingSelector     = ".listing-card, .gig-card"
	ListingTitle        = ".listing-title, .gig-title, h3"
	ListingLink         = "a"
)

// ReadySelector is the element the browser source polls for before
// extraction runs: listings render last on the profile layouts we target.
const ReadySelector = ".listing-card, .gig-card"

// Profile extracts the profile record and its nested listings from a
// rendered snapshot. Listing order follows document order.
func Profile(snap snapshot.Snapshot) *record.ProfileRecord {
	return &record.ProfileRecord{
		Name:        textOrDefault(snap, NameSelector),
		Handle:      textOrDefault(snap, HandleSelector),
		Heading:     textOrDefault(snap, HeadingSelector),
		RatingCount: textOrDefault(snap, RatingCountSelector),
		Skills:      collectText(snap, SkillSelector),
		Portfolio:   collectText(snap, PortfolioSelector),
		Listings:    listings(snap),
	}
}

func listings(snap snapshot.Snapshot) []record.ListingRecord {
	cards := snap.QueryAll(ListingSelector)
	out := make([]record.ListingRecord, 0, len(cards))
	for _, card := range cards {
		link, ok := card.Attr(ListingLink, "href")
		if !ok {
			link = record.Missing
		}
		out = append(out, record.ListingRecord{
			Title: textOrDefault(card, ListingTitle),
			Link:  link,
		})
	}
	return out
}

func textOrDefault(snap snapshot.Snapshot, selector string) string {
	text, ok := snap.QueryText(selector)
	if !ok || text == "" {
		return record.Missing
	}
	return text
}

func collectText(snap snapshot.Snapshot, selector string) []string {
	nodes := snap.QueryAll(selector)
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if text := n.Text(); text != "" {
			out = append(out, text)
		}
	}
	return out
}
