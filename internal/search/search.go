// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search runs the configured queries against a search backend,
// caching completed queries and merging hits into the record store.
package search

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/pdiddy/secdigest/pkg/types"
)

// Backend fetches one page of search hits. The arXiv implementation is the
// production backend; tests supply a canned one.
type Backend interface {
	Name() string
	Page(ctx context.Context, query string, start, pageSize int) (Page, error)
}

// Page is one page of backend results plus the pagination counters needed
// to decide whether more pages remain.
type Page struct {
	Hits  []types.SearchHit
	Total int
	Start int
}

// Cache is the per-query result cache consulted before issuing live fetches.
type Cache interface {
	LookupSearch(query string, ttl time.Duration) ([]types.SearchHit, bool, error)
	StoreSearch(query string, hits []types.SearchHit) error
}

// sleep pauses between consecutive API calls. Tests override it.
var sleep = time.Sleep

// Run executes every configured query, serving fresh cache entries where
// possible and paginating live fetches until each query is exhausted. With
// force set the cache lookup is bypassed, but completed queries are still
// written back to the cache. A failed query is reported and skipped; the
// remaining queries still run.
func Run(ctx context.Context, backend Backend, cache Cache, cfg types.SearchConfig, force bool, w io.Writer) ([]types.SearchHit, error) {
	var all []types.SearchHit

	for i, query := range cfg.Queries {
		if !force {
			hits, ok, err := cache.LookupSearch(query, cfg.CacheTTL)
			if err != nil {
				return nil, fmt.Errorf("cache lookup for %q: %w", query, err)
			}
			if ok {
				fmt.Fprintf(w, "[%d/%d] cached: %s (%d hits)\n", i+1, len(cfg.Queries), query, len(hits))
				all = append(all, hits...)
				continue
			}
		}

		fmt.Fprintf(w, "[%d/%d] searching: %s\n", i+1, len(cfg.Queries), query)

		hits, err := fetchQuery(ctx, backend, query, cfg)
		if err != nil {
			fmt.Fprintf(w, "warning: query %q failed: %v\n", query, err)
			continue
		}

		// Persist immediately so an interrupted run resumes past this query.
		if err := cache.StoreSearch(query, hits); err != nil {
			return nil, fmt.Errorf("caching results for %q: %w", query, err)
		}
		all = append(all, hits...)
	}

	return all, nil
}

// fetchQuery pages through a single query until the backend reports no
// further results, pausing a randomized interval between calls.
func fetchQuery(ctx context.Context, backend Backend, query string, cfg types.SearchConfig) ([]types.SearchHit, error) {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 200
	}

	var hits []types.SearchHit
	start := 0
	for {
		sleep(randomDelay(cfg.DelayMin, cfg.DelayMax))

		page, err := backend.Page(ctx, query, start, pageSize)
		if err != nil {
			return nil, err
		}
		hits = append(hits, page.Hits...)

		returned := len(page.Hits)
		if returned < pageSize || page.Start+returned >= page.Total {
			return hits, nil
		}
		start = page.Start + returned
	}
}

// randomDelay picks a duration uniformly from [min, max].
func randomDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}
