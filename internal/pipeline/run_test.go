package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daniela/profile-archiver/internal/dedup"
	"github.com/daniela/profile-archiver/internal/ledger"
	"github.com/daniela/profile-archiver/internal/pin"
	"github.com/daniela/profile-archiver/internal/record"
	"github.com/daniela/profile-archiver/internal/schemas"
	"github.com/daniela/profile-archiver/internal/snapshot"
)

const aliceURL = "https://example.com/u/alice"

const aliceHTML = `
<html><body>
	<h1 class="profile-name">Alice</h1>
	<span class="profile-handle">@alice</span>
	<div class="listing-card"><h3 class="listing-title">Logo Design</h3><a href="/l/logo">view</a></div>
	<div class="listing-card"><h3 class="listing-title">Icon Set</h3><a href="/l/icons">view</a></div>
</body></html>`

// releaseTracking wraps a snapshot and records whether Release ran.
type releaseTracking struct {
	snapshot.Snapshot
	released *bool
}

func (r *releaseTracking) Release() { *r.released = true }

type fakeSource struct {
	html     string
	err      error
	released bool
}

func (s *fakeSource) Acquire(_ context.Context, url string) (snapshot.Snapshot, error) {
	if s.err != nil {
		return nil, &snapshot.Error{URL: url, Message: "navigation timeout", Cause: s.err}
	}
	snap, err := snapshot.FromHTML(s.html)
	if err != nil {
		return nil, err
	}
	return &releaseTracking{Snapshot: snap, released: &s.released}, nil
}

// fakePublisher assigns content-derived CIDs and can fail selected labels.
type fakePublisher struct {
	mu         sync.Mutex
	labels     []string
	published  map[string][]byte // label -> canonical bytes
	failLabels []string
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{published: make(map[string][]byte)}
}

func (p *fakePublisher) Publish(_ context.Context, canonical []byte, label string) (*pin.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, fail := range p.failLabels {
		if strings.Contains(label, fail) {
			return nil, &pin.UploadError{Label: label, Message: "pin service unavailable"}
		}
	}
	p.labels = append(p.labels, label)
	p.published[label] = append([]byte(nil), canonical...)
	contentID, err := record.PredictCID(canonical)
	if err != nil {
		return nil, err
	}
	return &pin.Result{CID: contentID, GatewayURL: "https://gw/ipfs/" + contentID}, nil
}

func (p *fakePublisher) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.labels)
}

type fakeRegistry struct {
	entries []ledger.Entry
	err     error
}

func (r *fakeRegistry) Register(_ context.Context, e ledger.Entry) (ledger.TxHandle, error) {
	if r.err != nil {
		return "", &ledger.RegistryError{Op: "register", Key: e.Key, Cause: r.err}
	}
	r.entries = append(r.entries, e)
	return "0xfeed", nil
}

func (r *fakeRegistry) Lookup(context.Context, string) (*ledger.Entry, error) {
	return nil, ledger.ErrNotFound
}

func TestRunEndToEnd(t *testing.T) {
	source := &fakeSource{html: aliceHTML}
	publisher := newFakePublisher()
	runner := New(Options{Source: source, Publisher: publisher})

	res, err := runner.Run(context.Background(), aliceURL)
	require.NoError(t, err)

	require.Len(t, res.Listings, 2)
	assert.Equal(t, "Logo Design", res.Listings[0].Title)
	assert.Equal(t, "Icon Set", res.Listings[1].Title)
	assert.NotEqual(t, res.Listings[0].CID, res.Listings[1].CID)
	assert.NotEmpty(t, res.ProfileCID)
	assert.Equal(t, "https://gw/ipfs/"+res.ProfileCID, res.ProfileGatewayURL)
	assert.True(t, source.released, "snapshot must be released")

	// The published profile record references listings by identifier only.
	profileBytes, ok := publisher.published["profile:"+aliceURL]
	require.True(t, ok)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(profileBytes, &doc))
	listings, ok := doc["listings"].([]any)
	require.True(t, ok)
	require.Len(t, listings, 2)
	for _, l := range listings {
		tuple, ok := l.(map[string]any)
		require.True(t, ok)
		assert.ElementsMatch(t, []string{"title", "cid", "gatewayUrl"}, keysOf(tuple))
	}
}

func keysOf(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func TestRunPartialListingFailure(t *testing.T) {
	html := `
	<html><body>
		<div class="listing-card"><h3>Logo Design</h3></div>
		<div class="listing-card"><h3>Broken Offer</h3></div>
		<div class="listing-card"><h3>Icon Set</h3></div>
	</body></html>`
	publisher := newFakePublisher()
	publisher.failLabels = []string{"Broken Offer"}
	runner := New(Options{Source: &fakeSource{html: html}, Publisher: publisher})

	res, err := runner.Run(context.Background(), aliceURL)
	require.NoError(t, err, "one listing failing must not fail the request")

	require.Len(t, res.Listings, 2)
	assert.Equal(t, "Logo Design", res.Listings[0].Title)
	assert.Equal(t, "Icon Set", res.Listings[1].Title)
	assert.NotEmpty(t, res.ProfileCID)
}

func TestRunRootPublishFailureAborts(t *testing.T) {
	source := &fakeSource{html: aliceHTML}
	publisher := newFakePublisher()
	publisher.failLabels = []string{"profile:"}
	runner := New(Options{Source: source, Publisher: publisher})

	res, err := runner.Run(context.Background(), aliceURL)
	require.Error(t, err)
	assert.Nil(t, res)

	var publishErr *PublishError
	require.ErrorAs(t, err, &publishErr)
	var uploadErr *pin.UploadError
	assert.ErrorAs(t, err, &uploadErr)
	assert.True(t, source.released, "snapshot must be released on failure paths too")
}

func TestRunScrapeFailureAborts(t *testing.T) {
	publisher := newFakePublisher()
	runner := New(Options{
		Source:    &fakeSource{err: errors.New("net::ERR_TIMED_OUT")},
		Publisher: publisher,
	})

	res, err := runner.Run(context.Background(), aliceURL)
	require.Error(t, err)
	assert.Nil(t, res)

	var scrapeErr *ScrapeError
	require.ErrorAs(t, err, &scrapeErr)
	assert.Equal(t, aliceURL, scrapeErr.URL)
	assert.Equal(t, 0, publisher.calls(), "nothing may be published after a scrape failure")
}

func TestRunDedupAcrossRequests(t *testing.T) {
	publisher := newFakePublisher()
	store := dedup.NewStore(nil)
	runner := New(Options{Source: &fakeSource{html: aliceHTML}, Publisher: publisher, Dedup: store})
	ctx := context.Background()

	first, err := runner.Run(ctx, aliceURL)
	require.NoError(t, err)
	callsAfterFirst := publisher.calls()
	assert.Equal(t, 3, callsAfterFirst, "two listings plus the profile record")

	second, err := runner.Run(ctx, aliceURL)
	require.NoError(t, err)

	assert.Equal(t, callsAfterFirst, publisher.calls(), "identical content must not be resubmitted")
	assert.Equal(t, first.ProfileCID, second.ProfileCID)
	assert.Equal(t, first.Listings, second.Listings)
}

func TestRunLedgerStage(t *testing.T) {
	registry := &fakeRegistry{}
	runner := New(Options{
		Source:    &fakeSource{html: aliceHTML},
		Publisher: newFakePublisher(),
		Registry:  registry,
	})

	res, err := runner.Run(context.Background(), aliceURL)
	require.NoError(t, err)

	assert.Equal(t, "0xfeed", res.LedgerTx)
	require.Len(t, registry.entries, 1)
	assert.Equal(t, "@alice", registry.entries[0].Key)
	assert.Equal(t, res.ProfileCID, registry.entries[0].CID)
}

func TestRunLedgerFailureKeepsPublishResult(t *testing.T) {
	runner := New(Options{
		Source:    &fakeSource{html: aliceHTML},
		Publisher: newFakePublisher(),
		Registry:  &fakeRegistry{err: errors.New("chain congested")},
	})

	res, err := runner.Run(context.Background(), aliceURL)
	require.Error(t, err)

	var regErr *ledger.RegistryError
	require.ErrorAs(t, err, &regErr)
	require.NotNil(t, res, "publish result stands even when registration fails")
	assert.NotEmpty(t, res.ProfileCID)
}

func TestRunLedgerKeyFallsBackToURL(t *testing.T) {
	registry := &fakeRegistry{}
	runner := New(Options{
		Source:    &fakeSource{html: `<html><body><h1 class="profile-name">Alice</h1></body></html>`},
		Publisher: newFakePublisher(),
		Registry:  registry,
	})

	_, err := runner.Run(context.Background(), aliceURL)
	require.NoError(t, err)
	require.Len(t, registry.entries, 1)
	assert.Equal(t, aliceURL, registry.entries[0].Key)
}

func TestRunSchemaValidationPasses(t *testing.T) {
	schemaPath := schemas.ResolveSchemaPath(schemas.ProfileRecordSchema)
	require.NotEmpty(t, schemaPath)

	runner := New(Options{
		Source:     &fakeSource{html: aliceHTML},
		Publisher:  newFakePublisher(),
		SchemaPath: schemaPath,
	})

	res, err := runner.Run(context.Background(), aliceURL)
	require.NoError(t, err)
	assert.NotEmpty(t, res.ProfileCID)
}

func TestRunSchemaViolationIsPublishFailure(t *testing.T) {
	schemaPath := filepath.Join(t.TempDir(), "strict.schema.json")
	require.NoError(t, os.WriteFile(schemaPath, []byte(`{"type":"object","required":["neverPresent"]}`), 0o644))

	publisher := newFakePublisher()
	runner := New(Options{
		Source:     &fakeSource{html: aliceHTML},
		Publisher:  publisher,
		SchemaPath: schemaPath,
	})

	res, err := runner.Run(context.Background(), aliceURL)
	require.Error(t, err)
	assert.Nil(t, res)

	var publishErr *PublishError
	require.ErrorAs(t, err, &publishErr)
	for _, label := range publisher.labels {
		assert.NotContains(t, label, "profile:", "invalid root record must not be submitted")
	}
}

type recordingSink struct {
	urls []string
	html []string
}

func (s *recordingSink) Observe(profileURL string, snap snapshot.Snapshot) {
	s.urls = append(s.urls, profileURL)
	s.html = append(s.html, snap.HTML())
}

func TestRunDiagnosticsSinkObservesSnapshot(t *testing.T) {
	sink := &recordingSink{}
	runner := New(Options{
		Source:      &fakeSource{html: aliceHTML},
		Publisher:   newFakePublisher(),
		Diagnostics: sink,
	})

	_, err := runner.Run(context.Background(), aliceURL)
	require.NoError(t, err)

	require.Len(t, sink.urls, 1)
	assert.Equal(t, aliceURL, sink.urls[0])
	assert.Contains(t, sink.html[0], "profile-name")
}

func TestFileSinkWritesHTMLAndScreenshot(t *testing.T) {
	dir := t.TempDir()
	sink := &FileSink{Dir: dir}

	snap, err := snapshot.FromHTML(aliceHTML)
	require.NoError(t, err)
	snap.WithScreenshot([]byte{0x89, 0x50, 0x4e, 0x47})

	sink.Observe(aliceURL, snap)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var haveHTML, havePNG bool
	for _, e := range entries {
		switch filepath.Ext(e.Name()) {
		case ".html":
			haveHTML = true
		case ".png":
			havePNG = true
		}
	}
	assert.True(t, haveHTML)
	assert.True(t, havePNG)
}
