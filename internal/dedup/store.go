// Package dedup maps content fingerprints to previously obtained content
// identifiers and provides single-flight get-or-publish semantics.
package dedup

import (
	"context"
	"log"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/daniela/profile-archiver/internal/record"
)

// Entry is one published artifact: its content identifier and the gateway
// URL it is retrievable at.
type Entry struct {
	CID        string
	GatewayURL string
}

// PublishFunc performs the actual network submission for a record that has
// no cached identifier yet.
type PublishFunc func(ctx context.Context) (Entry, error)

// Backing is an optional durable layer behind the in-memory map, so the
// fingerprint mapping survives restarts and can be shared across instances.
// Get returns nil with no error when the fingerprint is unknown.
type Backing interface {
	Get(ctx context.Context, fp record.Fingerprint) (*Entry, error)
	Put(ctx context.Context, fp record.Fingerprint, e Entry) error
}

// Store holds the process-wide fingerprint to CID mapping. Entries are never
// evicted during normal operation.
//
// GetOrPublish is single-flight per fingerprint: when concurrent requests
// race on identical content, exactly one network submission happens and the
// rest wait for its result.
type Store struct {
	mu      sync.RWMutex
	entries map[record.Fingerprint]Entry
	group   singleflight.Group
	backing Backing
}

// NewStore creates an in-memory store. A nil backing means process-lifetime
// caching only.
func NewStore(backing Backing) *Store {
	return &Store{
		entries: make(map[record.Fingerprint]Entry),
		backing: backing,
	}
}

// Lookup reports the cached entry for a fingerprint without publishing.
func (s *Store) Lookup(fp record.Fingerprint) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[fp]
	return e, ok
}

// Len reports how many distinct fingerprints have been committed.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// GetOrPublish returns the identifier for the given fingerprint, invoking
// publish at most once per distinct fingerprint across all concurrent
// callers. The second return reports whether the entry was served from cache
// without a new submission.
func (s *Store) GetOrPublish(ctx context.Context, fp record.Fingerprint, publish PublishFunc) (Entry, bool, error) {
	if e, ok := s.Lookup(fp); ok {
		return e, true, nil
	}

	published := false
	v, err, _ := s.group.Do(fp.Hex(), func() (any, error) {
		// Re-check under the flight: a racing caller may have committed
		// between our lookup and the flight starting.
		if e, ok := s.Lookup(fp); ok {
			return e, nil
		}
		if e, ok := s.backingLookup(ctx, fp); ok {
			s.commit(ctx, fp, e, false)
			return e, nil
		}
		e, err := publish(ctx)
		if err != nil {
			return Entry{}, err
		}
		published = true
		s.commit(ctx, fp, e, true)
		return e, nil
	})
	if err != nil {
		return Entry{}, false, err
	}
	return v.(Entry), !published, nil
}

func (s *Store) backingLookup(ctx context.Context, fp record.Fingerprint) (Entry, bool) {
	if s.backing == nil {
		return Entry{}, false
	}
	e, err := s.backing.Get(ctx, fp)
	if err != nil {
		// Durable layer is an optimization; a lookup failure must not block
		// publishing.
		log.Printf("[dedup] backing lookup failed for %s: %v", fp.Hex(), err)
		return Entry{}, false
	}
	if e == nil {
		return Entry{}, false
	}
	return *e, true
}

func (s *Store) commit(ctx context.Context, fp record.Fingerprint, e Entry, writeThrough bool) {
	s.mu.Lock()
	s.entries[fp] = e
	s.mu.Unlock()

	if writeThrough && s.backing != nil {
		if err := s.backing.Put(ctx, fp, e); err != nil {
			log.Printf("[dedup] backing commit failed for %s: %v", fp.Hex(), err)
		}
	}
}
