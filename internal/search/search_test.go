// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/secdigest/pkg/types"
)

func init() {
	sleep = func(time.Duration) {}
}

// fakeBackend serves canned hits, pageSize at a time.
type fakeBackend struct {
	hits  []types.SearchHit
	calls int
	fail  map[string]bool
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Page(_ context.Context, query string, start, pageSize int) (Page, error) {
	b.calls++
	if b.fail[query] {
		return Page{}, errors.New("backend down")
	}
	end := start + pageSize
	if end > len(b.hits) {
		end = len(b.hits)
	}
	if start > len(b.hits) {
		start = len(b.hits)
	}
	return Page{Hits: b.hits[start:end], Total: len(b.hits), Start: start}, nil
}

// fakeCache is an in-memory Cache.
type fakeCache struct {
	entries map[string][]types.SearchHit
	lookups int
	stores  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]types.SearchHit{}}
}

func (c *fakeCache) LookupSearch(query string, _ time.Duration) ([]types.SearchHit, bool, error) {
	c.lookups++
	hits, ok := c.entries[query]
	return hits, ok, nil
}

func (c *fakeCache) StoreSearch(query string, hits []types.SearchHit) error {
	c.stores++
	c.entries[query] = hits
	return nil
}

func makeHits(n int) []types.SearchHit {
	hits := make([]types.SearchHit, n)
	for i := range hits {
		hits[i] = types.SearchHit{ID: fmt.Sprintf("id%03d", i), Title: "t"}
	}
	return hits
}

func TestRunFetchesAndCaches(t *testing.T) {
	backend := &fakeBackend{hits: makeHits(5)}
	cache := newFakeCache()
	cfg := types.SearchConfig{Queries: []string{"q1"}, PageSize: 10}

	var out bytes.Buffer
	hits, err := Run(context.Background(), backend, cache, cfg, false, &out)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 5 {
		t.Errorf("got %d hits", len(hits))
	}
	if cache.stores != 1 {
		t.Errorf("cache stores = %d, want 1", cache.stores)
	}
}

func TestRunServesFromCache(t *testing.T) {
	backend := &fakeBackend{hits: makeHits(3)}
	cache := newFakeCache()
	cache.entries["q1"] = makeHits(3)
	cfg := types.SearchConfig{Queries: []string{"q1"}, PageSize: 10}

	var out bytes.Buffer
	hits, err := Run(context.Background(), backend, cache, cfg, false, &out)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 3 {
		t.Errorf("got %d hits", len(hits))
	}
	if backend.calls != 0 {
		t.Errorf("backend called %d times for a cached query", backend.calls)
	}
	if !strings.Contains(out.String(), "cached") {
		t.Error("cached query not reported")
	}
}

func TestRunForceBypassesCache(t *testing.T) {
	backend := &fakeBackend{hits: makeHits(2)}
	cache := newFakeCache()
	cache.entries["q1"] = makeHits(9)
	cfg := types.SearchConfig{Queries: []string{"q1"}, PageSize: 10}

	var out bytes.Buffer
	hits, err := Run(context.Background(), backend, cache, cfg, true, &out)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Errorf("got %d hits, want live results", len(hits))
	}
	if backend.calls == 0 {
		t.Error("force run never hit the backend")
	}
	// The fresh results replace the stale cache entry.
	if len(cache.entries["q1"]) != 2 {
		t.Error("forced fetch not written back to cache")
	}
}

func TestRunSkipsFailedQuery(t *testing.T) {
	backend := &fakeBackend{hits: makeHits(4), fail: map[string]bool{"bad": true}}
	cache := newFakeCache()
	cfg := types.SearchConfig{Queries: []string{"bad", "good"}, PageSize: 10}

	var out bytes.Buffer
	hits, err := Run(context.Background(), backend, cache, cfg, false, &out)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 4 {
		t.Errorf("got %d hits, want the good query's results", len(hits))
	}
	if !strings.Contains(out.String(), "warning") {
		t.Error("failed query not reported")
	}
	if _, ok := cache.entries["bad"]; ok {
		t.Error("failed query must not be cached")
	}
}

func TestFetchQueryPaginates(t *testing.T) {
	backend := &fakeBackend{hits: makeHits(45)}
	cfg := types.SearchConfig{PageSize: 20}

	hits, err := fetchQuery(context.Background(), backend, "q", cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 45 {
		t.Errorf("got %d hits, want 45", len(hits))
	}
	// 20 + 20 + 5: the short third page ends pagination.
	if backend.calls != 3 {
		t.Errorf("backend calls = %d, want 3", backend.calls)
	}
	if hits[44].ID != "id044" {
		t.Errorf("last hit = %s", hits[44].ID)
	}
}

func TestFetchQueryExactMultipleOfPageSize(t *testing.T) {
	backend := &fakeBackend{hits: makeHits(40)}
	cfg := types.SearchConfig{PageSize: 20}

	hits, err := fetchQuery(context.Background(), backend, "q", cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 40 {
		t.Errorf("got %d hits", len(hits))
	}
	// The second page satisfies start+returned >= total, so no third call.
	if backend.calls != 2 {
		t.Errorf("backend calls = %d, want 2", backend.calls)
	}
}

func TestRandomDelayBounds(t *testing.T) {
	min, max := 500*time.Millisecond, 1500*time.Millisecond
	for i := 0; i < 100; i++ {
		d := randomDelay(min, max)
		if d < min || d > max {
			t.Fatalf("delay %v outside [%v, %v]", d, min, max)
		}
	}
	if got := randomDelay(min, min); got != min {
		t.Errorf("degenerate range = %v, want %v", got, min)
	}
}
