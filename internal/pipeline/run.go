// Package pipeline orchestrates the extract, canonicalize, deduplicate and
// publish flow for one profile URL per request.
package pipeline

import (
	"context"
	"log"

	"github.com/daniela/profile-archiver/internal/dedup"
	"github.com/daniela/profile-archiver/internal/extract"
	"github.com/daniela/profile-archiver/internal/ledger"
	"github.com/daniela/profile-archiver/internal/pin"
	"github.com/daniela/profile-archiver/internal/record"
	"github.com/daniela/profile-archiver/internal/schemas"
	"github.com/daniela/profile-archiver/internal/snapshot"
)

// Publisher submits canonical bytes to the storage network.
type Publisher interface {
	Publish(ctx context.Context, canonical []byte, label string) (*pin.Result, error)
}

// Options composes the pipeline stages. Source and Publisher are required;
// nil Dedup, Registry and Diagnostics disable those stages rather than
// forking the flow into parallel variants.
type Options struct {
	Source      snapshot.Source
	Publisher   Publisher
	Dedup       *dedup.Store
	Registry    ledger.Registry
	Diagnostics DiagnosticSink
	// SchemaPath validates the root profile record before publishing when
	// set.
	SchemaPath string
	Verbose    bool
}

// Result is the aggregate outcome returned to the caller.
type Result struct {
	ProfileCID        string
	ProfileGatewayURL string
	// Listings holds the successfully published listing references in page
	// document order. Listings whose publish failed are omitted.
	Listings []record.ListingRef
	// LedgerTx is set when the ledger stage is enabled and registration
	// succeeded.
	LedgerTx string
}

// Runner executes the pipeline. One logical task per incoming request; steps
// within a request run strictly sequentially.
type Runner struct {
	opts Options
}

// New builds a Runner from options.
func New(opts Options) *Runner {
	return &Runner{opts: opts}
}

// Run archives one profile URL: acquire snapshot, extract, publish each
// listing best-effort, then publish the root profile record referencing the
// listings by identifier.
//
// A listing publish failure is logged and the listing omitted; a root
// publish failure aborts the request. When the ledger stage fails after a
// successful publish, Run returns the valid Result together with the
// *ledger.RegistryError so the caller can surface it distinctly.
func (r *Runner) Run(ctx context.Context, profileURL string) (*Result, error) {
	snap, err := r.opts.Source.Acquire(ctx, profileURL)
	if err != nil {
		return nil, &ScrapeError{URL: profileURL, Cause: err}
	}
	defer snap.Release()

	if r.opts.Diagnostics != nil {
		r.opts.Diagnostics.Observe(profileURL, snap)
	}

	profile := extract.Profile(snap)
	refs := r.publishListings(ctx, profileURL, profile.Listings)

	profileDoc := record.ProfileDocument(profileURL, profile, refs)
	canonical, err := record.Canonicalize(profileDoc)
	if err != nil {
		return nil, &PublishError{Label: "profile", Cause: err}
	}
	if r.opts.SchemaPath != "" {
		if err := schemas.ValidateCanonical(r.opts.SchemaPath, canonical.Bytes); err != nil {
			return nil, &PublishError{Label: "profile", Cause: err}
		}
	}

	entry, err := r.submit(ctx, canonical, "profile:"+profileURL)
	if err != nil {
		return nil, &PublishError{Label: "profile", Cause: err}
	}

	result := &Result{
		ProfileCID:        entry.CID,
		ProfileGatewayURL: entry.GatewayURL,
		Listings:          refs,
	}

	if r.opts.Registry != nil {
		tx, err := r.opts.Registry.Register(ctx, ledger.Entry{
			Key:        registryKey(profileURL, profile),
			CID:        entry.CID,
			GatewayURL: entry.GatewayURL,
		})
		if err != nil {
			// The publish stands; registration failure is its own outcome.
			return result, err
		}
		result.LedgerTx = string(tx)
	}

	return result, nil
}

// publishListings publishes each listing record best-effort, in page
// document order. Failures drop the listing and never abort the request.
func (r *Runner) publishListings(ctx context.Context, profileURL string, listings []record.ListingRecord) []record.ListingRef {
	refs := make([]record.ListingRef, 0, len(listings))
	for _, l := range listings {
		canonical, err := record.Canonicalize(record.ListingDocument(profileURL, l))
		if err != nil {
			log.Printf("[pipeline] skipping listing %q: %v", l.Title, err)
			continue
		}
		entry, err := r.submit(ctx, canonical, "listing:"+l.Title)
		if err != nil {
			log.Printf("[pipeline] skipping listing %q: %v", l.Title, err)
			continue
		}
		refs = append(refs, record.ListingRef{
			Title:      l.Title,
			CID:        entry.CID,
			GatewayURL: entry.GatewayURL,
		})
	}
	return refs
}

// submit runs the dedup-or-publish stage for one canonical record.
func (r *Runner) submit(ctx context.Context, c *record.Canonical, label string) (dedup.Entry, error) {
	publish := func(ctx context.Context) (dedup.Entry, error) {
		res, err := r.opts.Publisher.Publish(ctx, c.Bytes, label)
		if err != nil {
			return dedup.Entry{}, err
		}
		return dedup.Entry{CID: res.CID, GatewayURL: res.GatewayURL}, nil
	}

	if r.opts.Dedup == nil {
		return publish(ctx)
	}

	entry, cached, err := r.opts.Dedup.GetOrPublish(ctx, c.Fingerprint, publish)
	if err != nil {
		return dedup.Entry{}, err
	}
	if cached && r.opts.Verbose {
		log.Printf("[pipeline] %s already published as %s", label, entry.CID)
	}
	return entry, nil
}

// registryKey derives the identity key for ledger registration: the profile
// handle when extracted, the URL otherwise.
func registryKey(profileURL string, p *record.ProfileRecord) string {
	if p.Handle != record.Missing && p.Handle != "" {
		return p.Handle
	}
	return profileURL
}
