package feed

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// DefaultLang is what the upstream feed serves when no language is requested.
const DefaultLang = "th"

// minTTL floors a pathological near-zero TTL so a misconfigured deployment
// cannot turn every request into an upstream fetch.
const minTTL = 5 * time.Second

// ErrJobNotFound means the referenced job id is absent from the authoritative
// feed right now. Feed staleness is bounded by the cache TTL.
var ErrJobNotFound = errors.New("job not found")

// Key identifies one cached view of the feed. Empty dimensions act as
// wildcards-of-one; Lang is case-normalized.
type Key struct {
	Lang       string
	Country    string
	Department string
	Level      string
}

func (k Key) normalized() Key {
	k.Lang = strings.ToLower(strings.TrimSpace(k.Lang))
	if k.Lang == "" {
		k.Lang = DefaultLang
	}
	return k
}

func (k Key) id() string {
	return k.Lang + "|" + k.Country + "|" + k.Department + "|" + k.Level
}

// Source produces a raw feed payload for a key. *Client satisfies it; tests
// inject counting fakes.
type Source interface {
	FetchRaw(ctx context.Context, k Key) (map[string]any, error)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func(ctx context.Context, k Key) (map[string]any, error)

func (f SourceFunc) FetchRaw(ctx context.Context, k Key) (map[string]any, error) {
	return f(ctx, k)
}

type entry struct {
	expiresAt time.Time
	doc       Document // stored whole, never mutated after Store
}

// Cache is the process-wide, TTL-bounded memoization of normalized feed
// documents. Concurrent misses on one key collapse into a single upstream
// fetch; distinct keys proceed fully independently. Entries are superseded or
// left to go stale; nothing is ever deleted. The per-key lock map grows with
// the observed key space and is never pruned — the key space is the small
// cross product of language, country, department and level.
type Cache struct {
	TTL time.Duration
	Now func() time.Time // injectable clock for tests

	src     Source
	entries sync.Map // key id -> entry
	locks   sync.Map // key id -> *sync.Mutex
}

func NewCache(src Source, ttl time.Duration) *Cache {
	return &Cache{TTL: ttl, Now: time.Now, src: src}
}

// Get returns the cached document for the key, fetching and normalizing once
// on a miss. It never fails for cache-layer reasons: errors only surface from
// an actual upstream fetch, and failed fetches are never cached.
func (c *Cache) Get(ctx context.Context, k Key) (Document, error) {
	k = k.normalized()
	id := k.id()

	// Fast path: lock-free read of a live entry.
	if v, ok := c.entries.Load(id); ok {
		if e := v.(entry); e.expiresAt.After(c.Now()) {
			return e.doc, nil
		}
	}

	mu := c.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	// Double-check: another caller may have refreshed while we waited.
	if v, ok := c.entries.Load(id); ok {
		if e := v.(entry); e.expiresAt.After(c.Now()) {
			return e.doc, nil
		}
	}

	raw, err := c.src.FetchRaw(ctx, k)
	if err != nil {
		return Document{}, err
	}
	doc := Normalize(raw)

	ttl := c.TTL
	if ttl < minTTL {
		ttl = minTTL
	}
	c.entries.Store(id, entry{expiresAt: c.Now().Add(ttl), doc: doc})
	return doc, nil
}

func (c *Cache) lockFor(id string) *sync.Mutex {
	v, _ := c.locks.LoadOrStore(id, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// JobByID re-resolves a job from the authoritative feed. The intake pipeline
// forces lang to a canonical value so client-supplied job metadata never leaks
// into persisted records.
func (c *Cache) JobByID(ctx context.Context, jobID, lang string) (Row, error) {
	doc, err := c.Get(ctx, Key{Lang: lang})
	if err != nil {
		return nil, err
	}
	for _, r := range doc.Rows {
		if r.JobID() == jobID {
			return r, nil
		}
	}
	return nil, ErrJobNotFound
}

// KeyState describes one cache entry for the introspection endpoint.
type KeyState struct {
	Key          string `json:"key"`
	ExpiresInSec int    `json:"expires_in_sec"`
	Total        int    `json:"total"`
	Version      string `json:"version"`
}

// Snapshot lists every cached key with its remaining TTL and row count.
// Read-only operational visibility; expired entries report zero remaining.
func (c *Cache) Snapshot() []KeyState {
	now := c.Now()
	var out []KeyState
	c.entries.Range(func(k, v any) bool {
		e := v.(entry)
		remain := int(e.expiresAt.Sub(now).Seconds())
		if remain < 0 {
			remain = 0
		}
		out = append(out, KeyState{
			Key:          k.(string),
			ExpiresInSec: remain,
			Total:        e.doc.Total,
			Version:      e.doc.Version,
		})
		return true
	})
	return out
}
