package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemorySize bounds a [MemoryStore] created with a non-positive size.
const DefaultMemorySize = 10_000

type memoryKey struct {
	ns  Namespace
	key string
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero for permanent entries
}

func (e memoryEntry) live(now time.Time) bool {
	return e.expiresAt.IsZero() || !now.After(e.expiresAt)
}

// MemoryStore is an in-process [Store] bounded by an LRU.
//
// Expiry follows the same rules as [SQLiteStore]. Entries pushed out by the LRU bound read as misses.
type MemoryStore struct {
	entries *lru.Cache[memoryKey, memoryEntry]
	now     func() time.Time
}

// NewMemoryStore creates a store holding at most size entries across all namespaces.
func NewMemoryStore(size int, opts ...Option) (*MemoryStore, error) {
	if size <= 0 {
		size = DefaultMemorySize
	}

	entries, err := lru.New[memoryKey, memoryEntry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	o := newOptions(opts)
	return &MemoryStore{entries: entries, now: o.now}, nil
}

// Get implements [Store].
func (m *MemoryStore) Get(_ context.Context, ns Namespace, key string) ([]byte, bool, error) {
	if err := ns.Validate(); err != nil {
		return nil, false, err
	}

	entry, ok := m.entries.Get(memoryKey{ns, key})
	if !ok || !entry.live(m.now()) {
		return nil, false, nil
	}
	return clone(entry.value), true, nil
}

// GetMany implements [Store].
func (m *MemoryStore) GetMany(ctx context.Context, ns Namespace, keys []string) (map[string][]byte, error) {
	if err := ns.Validate(); err != nil {
		return nil, err
	}

	found := make(map[string][]byte, len(keys))
	now := m.now()
	for _, key := range keys {
		if entry, ok := m.entries.Get(memoryKey{ns, key}); ok && entry.live(now) {
			found[key] = clone(entry.value)
		}
	}
	return found, nil
}

// Put implements [Store].
func (m *MemoryStore) Put(_ context.Context, ns Namespace, key string, value []byte, policy Policy) error {
	if err := ns.Validate(); err != nil {
		return err
	}
	if err := policy.validate(); err != nil {
		return err
	}

	entry := memoryEntry{value: clone(value)}
	if expiry, ok := policy.ExpiresAt(m.now()); ok {
		entry.expiresAt = expiry
	}

	m.entries.Add(memoryKey{ns, key}, entry)
	return nil
}

// Stats implements [Store].
func (m *MemoryStore) Stats(_ context.Context) ([]NamespaceStats, error) {
	stats, index := emptyStats()
	now := m.now()

	for _, k := range m.entries.Keys() {
		entry, ok := m.entries.Peek(k)
		st, known := index[k.ns]
		if !ok || !known {
			continue
		}

		switch {
		case entry.expiresAt.IsZero():
			st.Permanent++
		case entry.live(now):
			st.Live++
		default:
			st.Expired++
		}
	}

	return stats, nil
}

// Len returns the number of entries held, expired ones included.
func (m *MemoryStore) Len() int { return m.entries.Len() }

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
