// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/secdigest/pkg/types"
)

// LookupSearch returns the cached hits for the exact query string if they
// were fetched within ttl, or ok=false if the entry is absent or stale. The
// cache key is the literal query: editing a query's wording produces a miss,
// and records already inserted from the old wording are not retroactively
// removed.
func (s *Store) LookupSearch(query string, ttl time.Duration) ([]types.SearchHit, bool, error) {
	var fetchedAt, hitsJSON string
	err := s.db.QueryRow(
		`SELECT fetched_at, hits FROM search_cache WHERE query = ?`, query,
	).Scan(&fetchedAt, &hitsJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading cache entry: %w", err)
	}

	t, err := time.Parse(time.RFC3339, fetchedAt)
	if err != nil {
		return nil, false, fmt.Errorf("parsing cache timestamp %q: %w", fetchedAt, err)
	}
	if timeNow().Sub(t) >= ttl {
		return nil, false, nil
	}

	var hits []types.SearchHit
	if err := json.Unmarshal([]byte(hitsJSON), &hits); err != nil {
		return nil, false, fmt.Errorf("parsing cached hits: %w", err)
	}
	return hits, true, nil
}

// StoreSearch writes the hits for a query, overwriting any previous entry.
// Entries are written as each query completes, so an interrupted multi-query
// run keeps the progress of already-fetched queries.
func (s *Store) StoreSearch(query string, hits []types.SearchHit) error {
	hitsJSON, err := json.Marshal(hits)
	if err != nil {
		return fmt.Errorf("marshaling hits: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO search_cache (query, fetched_at, hits) VALUES (?, ?, ?)
		 ON CONFLICT(query) DO UPDATE SET
			fetched_at=excluded.fetched_at, hits=excluded.hits`,
		query, timeNow().UTC().Format(time.RFC3339), string(hitsJSON),
	)
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}
