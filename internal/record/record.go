// Package record defines the pipeline's data model: raw extracted records,
// their canonical byte encoding, and content fingerprints.
package record

// Missing is the sentinel value substituted for scalar fields whose source
// element was absent from the rendered page.
const Missing = "N/A"

// RawRecord is a field map produced by extraction. Two RawRecords with the
// same field/value set are semantically equal regardless of the order the
// fields were inserted in; Canonicalize erases that difference.
type RawRecord map[string]any

// ListingRecord is a single listing extracted from a profile page, owned by
// the profile's listing collection.
type ListingRecord struct {
	Title string
	Link  string
}

// ProfileRecord is the extraction result for one profile page. Listings hold
// the full extracted listing bodies; the published profile document replaces
// them with ListingRef tuples.
type ProfileRecord struct {
	Name        string
	Handle      string
	Heading     string
	RatingCount string
	Skills      []string
	Portfolio   []string
	Listings    []ListingRecord
}

// ListingRef is the reference tuple substituted for a published listing in
// the profile document: the listing is referenced by identifier, never
// embedded.
type ListingRef struct {
	Title      string `json:"title"`
	CID        string `json:"cid"`
	GatewayURL string `json:"gatewayUrl"`
}

// ListingDocument shapes a listing for canonicalization and publishing.
func ListingDocument(profileURL string, l ListingRecord) RawRecord {
	return RawRecord{
		"type":       "listing",
		"profileUrl": profileURL,
		"title":      l.Title,
		"link":       l.Link,
	}
}

// ProfileDocument shapes the root profile record for canonicalization and
// publishing. Listing bodies are replaced by reference tuples.
func ProfileDocument(profileURL string, p *ProfileRecord, refs []ListingRef) RawRecord {
	listings := make([]any, 0, len(refs))
	for _, ref := range refs {
		listings = append(listings, RawRecord{
			"title":      ref.Title,
			"cid":        ref.CID,
			"gatewayUrl": ref.GatewayURL,
		})
	}
	return RawRecord{
		"type":        "profile",
		"profileUrl":  profileURL,
		"name":        p.Name,
		"handle":      p.Handle,
		"heading":     p.Heading,
		"ratingCount": p.RatingCount,
		"skills":      stringsToAny(p.Skills),
		"portfolio":   stringsToAny(p.Portfolio),
		"listings":    listings,
	}
}

func stringsToAny(values []string) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}
