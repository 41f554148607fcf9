// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"io"
	"time"

	"github.com/pdiddy/secdigest/pkg/types"
)

// RecordStore is the subset of the store the dedup engine needs.
type RecordStore interface {
	Get(id string) (*types.PaperRecord, bool, error)
	Upsert(rec *types.PaperRecord) error
}

// Merge inserts every hit not already present in the store as a minimal
// record (identity fields only). Hits whose id is already stored are left
// untouched: a re-search never overwrites identity fields or any stage
// progress. Duplicate ids within the hit list itself are collapsed. The
// store ends up a durable superset of everything ever seen.
func Merge(store RecordStore, hits []types.SearchHit, w io.Writer) (added int, err error) {
	seen := make(map[string]bool, len(hits))
	for _, hit := range hits {
		if hit.ID == "" || seen[hit.ID] {
			continue
		}
		seen[hit.ID] = true

		_, exists, err := store.Get(hit.ID)
		if err != nil {
			return added, fmt.Errorf("checking for %s: %w", hit.ID, err)
		}
		if exists {
			continue
		}

		if err := store.Upsert(hit.NewRecord()); err != nil {
			return added, fmt.Errorf("inserting %s: %w", hit.ID, err)
		}
		added++
	}

	fmt.Fprintf(w, "merged %d hits: %d new, %d already known\n", len(seen), added, len(seen)-added)
	return added, nil
}

// Eligible filters records to those whose publication timestamp falls within
// the trailing retention window. Records outside the window are excluded
// from further stage work but never deleted from the store.
func Eligible(records []*types.PaperRecord, now time.Time, retentionDays int) []*types.PaperRecord {
	cutoff := now.UTC().AddDate(0, 0, -retentionDays)
	var eligible []*types.PaperRecord
	for _, r := range records {
		if r.Published.Before(cutoff) {
			continue
		}
		eligible = append(eligible, r)
	}
	return eligible
}
