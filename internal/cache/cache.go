// Package cache implements the persistent key-value store shared by every pipeline stage.
//
// Entries live in a [Namespace] under a string key and carry their own expiry [Policy]:
// a fixed TTL or permanent. A read of an entry past its expiry is a miss; the row stays
// in place until the next write overwrites it. Nothing is evicted proactively.
//
// [SQLiteStore] is the durable implementation backed by the cache_entries table.
// [MemoryStore] is a bounded in-process substitute built on an LRU.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/stride/internal/shared"
)

// Namespace groups entries of one entity kind.
type Namespace string

const (
	LibrarySnapshots Namespace = "library_snapshots"
	Recommendations  Namespace = "recommendations"
	TempoRecords     Namespace = "tempo_records"
	ArtistTopTracks  Namespace = "artist_top_tracks"
)

// Namespaces lists every known namespace in display order.
func Namespaces() []Namespace {
	return []Namespace{LibrarySnapshots, Recommendations, TempoRecords, ArtistTopTracks}
}

// Validate returns [shared.ErrUnknownNamespace] for names outside [Namespaces].
func (n Namespace) Validate() error {
	for _, known := range Namespaces() {
		if n == known {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", shared.ErrUnknownNamespace, string(n))
}

// Policy is an entry's expiry: a fixed TTL from the write time, or permanent.
type Policy struct {
	ttl       time.Duration
	permanent bool
}

// Permanent entries never expire.
var Permanent = Policy{permanent: true}

// TTL returns a policy expiring d after the write.
func TTL(d time.Duration) Policy { return Policy{ttl: d} }

// IsPermanent reports whether the policy never expires.
func (p Policy) IsPermanent() bool { return p.permanent }

// ExpiresAt returns the expiry for an entry written at now. ok is false for permanent entries.
func (p Policy) ExpiresAt(now time.Time) (expiry time.Time, ok bool) {
	if p.permanent {
		return time.Time{}, false
	}
	return now.Add(p.ttl), true
}

func (p Policy) validate() error {
	if !p.permanent && p.ttl <= 0 {
		return fmt.Errorf("%w: cache ttl must be positive, got %v", shared.ErrInvalidInput, p.ttl)
	}
	return nil
}

func (p Policy) String() string {
	if p.permanent {
		return "permanent"
	}
	return "ttl=" + p.ttl.String()
}

// Store is the shared cache contract.
//
// Implementations are safe for concurrent use. Writes to the same (namespace, key) are last-write-wins.
type Store interface {
	// Get returns the live value under key; ok is false when absent or expired.
	Get(ctx context.Context, ns Namespace, key string) (value []byte, ok bool, err error)
	// GetMany returns the live values for keys; absent and expired keys are left out.
	GetMany(ctx context.Context, ns Namespace, keys []string) (map[string][]byte, error)
	// Put writes value under key, replacing any previous entry and its policy.
	Put(ctx context.Context, ns Namespace, key string, value []byte, policy Policy) error
	// Stats counts entries per namespace.
	Stats(ctx context.Context) ([]NamespaceStats, error)
}

// NamespaceStats counts the entries of one namespace at the time of the call.
type NamespaceStats struct {
	Namespace Namespace
	Live      int // unexpired TTL entries
	Expired   int // TTL entries past expiry, still on disk
	Permanent int
}

// Total returns the number of stored entries, expired ones included.
func (s NamespaceStats) Total() int { return s.Live + s.Expired + s.Permanent }

// Option configures a store.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now, for tests that move time forward.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func newOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// emptyStats returns zeroed stats for every namespace, indexed for filling in.
func emptyStats() ([]NamespaceStats, map[Namespace]*NamespaceStats) {
	stats := make([]NamespaceStats, len(Namespaces()))
	index := make(map[Namespace]*NamespaceStats, len(stats))
	for i, ns := range Namespaces() {
		stats[i].Namespace = ns
		index[ns] = &stats[i]
	}
	return stats, index
}
