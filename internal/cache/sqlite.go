package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// sqliteMaxVars keeps IN lists under SQLite's bound-parameter limit.
const sqliteMaxVars = 500

// SQLiteStore is a [Store] over the cache_entries table created by shared.RunMigrations.
//
// Times are stored as unix milliseconds; a NULL expires_at is a permanent entry.
// Each Put is a single-row upsert, so concurrent writers never corrupt a row.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore wraps an open, migrated database.
func NewSQLiteStore(db *sql.DB, opts ...Option) *SQLiteStore {
	o := newOptions(opts)
	return &SQLiteStore{db: db, now: o.now}
}

// Get implements [Store].
func (s *SQLiteStore) Get(ctx context.Context, ns Namespace, key string) ([]byte, bool, error) {
	if err := ns.Validate(); err != nil {
		return nil, false, err
	}

	query := `
		SELECT payload FROM cache_entries
		WHERE namespace = ? AND key = ? AND (expires_at IS NULL OR expires_at >= ?)
	`

	var payload []byte
	err := s.db.QueryRowContext(ctx, query, string(ns), key, s.now().UnixMilli()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s/%s: %w", ns, key, err)
	}

	return payload, true, nil
}

// GetMany implements [Store].
func (s *SQLiteStore) GetMany(ctx context.Context, ns Namespace, keys []string) (map[string][]byte, error) {
	if err := ns.Validate(); err != nil {
		return nil, err
	}

	found := make(map[string][]byte, len(keys))
	now := s.now().UnixMilli()

	for start := 0; start < len(keys); start += sqliteMaxVars {
		end := min(start+sqliteMaxVars, len(keys))
		if err := s.getChunk(ctx, ns, keys[start:end], now, found); err != nil {
			return nil, err
		}
	}

	return found, nil
}

func (s *SQLiteStore) getChunk(ctx context.Context, ns Namespace, keys []string, now int64, found map[string][]byte) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	query := fmt.Sprintf(`
		SELECT key, payload FROM cache_entries
		WHERE namespace = ? AND key IN (%s) AND (expires_at IS NULL OR expires_at >= ?)
	`, placeholders)

	args := make([]any, 0, len(keys)+2)
	args = append(args, string(ns))
	for _, k := range keys {
		args = append(args, k)
	}
	args = append(args, now)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to read %s entries: %w", ns, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key     string
			payload []byte
		)
		if err := rows.Scan(&key, &payload); err != nil {
			return fmt.Errorf("failed to scan %s entry: %w", ns, err)
		}
		found[key] = payload
	}

	return rows.Err()
}

// Put implements [Store].
func (s *SQLiteStore) Put(ctx context.Context, ns Namespace, key string, value []byte, policy Policy) error {
	if err := ns.Validate(); err != nil {
		return err
	}
	if err := policy.validate(); err != nil {
		return err
	}

	now := s.now()
	var expiresAt any
	if expiry, ok := policy.ExpiresAt(now); ok {
		expiresAt = expiry.UnixMilli()
	}

	query := `
		INSERT INTO cache_entries (namespace, key, payload, fetched_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (namespace, key) DO UPDATE SET
			payload = excluded.payload,
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at
	`

	if _, err := s.db.ExecContext(ctx, query, string(ns), key, value, now.UnixMilli(), expiresAt); err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", ns, key, err)
	}

	return nil
}

// Stats implements [Store].
func (s *SQLiteStore) Stats(ctx context.Context) ([]NamespaceStats, error) {
	query := `
		SELECT
			namespace,
			COALESCE(SUM(CASE WHEN expires_at IS NOT NULL AND expires_at >= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN expires_at IS NOT NULL AND expires_at < ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN expires_at IS NULL THEN 1 ELSE 0 END), 0)
		FROM cache_entries
		GROUP BY namespace
	`

	now := s.now().UnixMilli()
	rows, err := s.db.QueryContext(ctx, query, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to count cache entries: %w", err)
	}
	defer rows.Close()

	stats, index := emptyStats()
	for rows.Next() {
		var (
			ns                       string
			live, expired, permanent int
		)
		if err := rows.Scan(&ns, &live, &expired, &permanent); err != nil {
			return nil, fmt.Errorf("failed to scan cache stats: %w", err)
		}
		if st, ok := index[Namespace(ns)]; ok {
			st.Live, st.Expired, st.Permanent = live, expired, permanent
		}
	}

	return stats, rows.Err()
}
