// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"sort"

	"github.com/pdiddy/secdigest/pkg/types"
)

// Rank selects and orders the records that go into the digest. Only
// summarized records appear; unless includeGeneral is set, only records
// classified relevant survive the filter. Ordering is by interest score
// descending, with missing scores sorting in the middle of the range, then
// by publication time, newest first.
func Rank(records []*types.PaperRecord, includeGeneral bool) []*types.PaperRecord {
	var out []*types.PaperRecord
	for _, r := range records {
		if !r.Summarized {
			continue
		}
		if !includeGeneral && !r.IsRelevant() {
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		si, sj := out[i].SortScore(), out[j].SortScore()
		if si != sj {
			return si > sj
		}
		return out[i].Published.After(out[j].Published)
	})
	return out
}
