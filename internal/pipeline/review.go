// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/pdiddy/secdigest/pkg/types"
)

// reviewBorderline walks the borderline records (security-adjacent tag but
// auto-classified irrelevant) and asks the operator whether to include each
// one. An accepted record has its verdict flipped and written back, so the
// decision sticks across runs. EOF on input ends the review early, leaving
// the remaining verdicts unchanged.
func (p *Pipeline) reviewBorderline(records []*types.PaperRecord) error {
	var borderline []*types.PaperRecord
	for _, r := range records {
		if r.Borderline() {
			borderline = append(borderline, r)
		}
	}
	if len(borderline) == 0 {
		return nil
	}

	fmt.Fprintf(p.Out, "\n%d borderline paper(s) were classified not relevant:\n", len(borderline))
	scanner := bufio.NewScanner(p.In)
	for _, r := range borderline {
		fmt.Fprintf(p.Out, "  %s [%s] %s\n    %s\n  include anyway? [y/N] ", r.ID, r.Tag, r.Title, r.OneLiner)
		if !scanner.Scan() {
			fmt.Fprintln(p.Out)
			return scanner.Err()
		}
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if answer != "y" && answer != "yes" {
			continue
		}

		relevant := true
		r.Relevant = &relevant
		if err := p.Store.Upsert(r); err != nil {
			return fmt.Errorf("saving review verdict for %s: %w", r.ID, err)
		}
	}
	return nil
}
