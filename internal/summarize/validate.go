// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"strings"

	"github.com/pdiddy/secdigest/pkg/types"
)

// ValidateAffiliations filters model affiliation claims against the record's
// author list. A claim survives only when the authors the model attributes to
// the institution cover at least threshold of the record's authors, matched
// by surname, and at least one author matches at all. A record with no known
// authors cannot be checked, so its claims pass through unchanged.
func ValidateAffiliations(claims []AffiliationClaim, authors []string, threshold float64) []string {
	if len(claims) == 0 {
		return nil
	}

	var kept []string
	if len(authors) == 0 {
		for _, c := range claims {
			if name := strings.TrimSpace(c.Name); name != "" {
				kept = append(kept, name)
			}
		}
		return kept
	}

	surnames := make([]string, 0, len(authors))
	for _, a := range authors {
		if s := surname(a); s != "" {
			surnames = append(surnames, s)
		}
	}

	for _, c := range claims {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}

		claimed := make(map[string]bool, len(c.Authors))
		for _, a := range c.Authors {
			if s := surname(a); s != "" {
				claimed[s] = true
			}
		}

		matched := 0
		for _, s := range surnames {
			if claimed[s] {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		if float64(matched) < threshold*float64(len(surnames)) {
			continue
		}
		kept = append(kept, name)
	}
	return kept
}

// surname returns the lowercased last whitespace-separated token of a name.
func surname(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// FilterProjects keeps only ids present in the registry, preserving the
// model's order and dropping duplicates. The result is always non-nil so a
// completed match with no hits is distinguishable from a stage never run.
func FilterProjects(ids []string, registry []types.ProjectDefinition) []string {
	known := make(map[string]bool, len(registry))
	for _, p := range registry {
		known[p.ID] = true
	}

	kept := []string{}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] || !known[id] {
			continue
		}
		seen[id] = true
		kept = append(kept, id)
	}
	return kept
}
