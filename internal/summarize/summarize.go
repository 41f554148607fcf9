// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/secdigest/pkg/types"
)

// AffiliationClaim is one institution claim from the model, with the paper
// authors the model attributes to it.
type AffiliationClaim struct {
	Name    string   `json:"name"`
	Authors []string `json:"authors"`
}

type summaryResponse struct {
	Findings      []string           `json:"findings"`
	OneLiner      string             `json:"one_liner"`
	Emoji         string             `json:"emoji"`
	Tag           string             `json:"tag"`
	InterestScore *int               `json:"interest_score"`
	Affiliations  []AffiliationClaim `json:"affiliations"`
}

// Summarize sends the paper text to the model and fills the record's summary
// fields. Out-of-range or missing optional fields fall back to defaults
// instead of failing the record: emoji defaults to the magnifier, tag to
// general, and an invalid interest score is dropped. Affiliation claims are
// checked against the record's author list before being stored.
func Summarize(ctx context.Context, llm Completer, cfg types.SummarizeConfig, threshold float64, rec *types.PaperRecord, text string) error {
	system := cfg.SystemPrompt
	if system == "" {
		system = DefaultSummaryPrompt
	}
	user := fmt.Sprintf("Title: %s\n\n%s", rec.Title, text)

	var raw []byte
	err := callWithRetry(ctx, cfg.MaxRetries, func() error {
		var callErr error
		raw, callErr = llm.Complete(ctx, system, user)
		return callErr
	})
	if err != nil {
		return fmt.Errorf("summarizing %s: %w", rec.ID, err)
	}

	var parsed summaryResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("summarizing %s: %w: %v", rec.ID, ErrMalformedOutput, err)
	}
	if len(parsed.Findings) == 0 || parsed.OneLiner == "" {
		return fmt.Errorf("summarizing %s: %w: findings or one_liner missing", rec.ID, ErrMalformedOutput)
	}

	rec.Points = trimAll(parsed.Findings)
	rec.OneLiner = strings.TrimSpace(parsed.OneLiner)

	rec.Emoji = strings.TrimSpace(parsed.Emoji)
	if rec.Emoji == "" {
		rec.Emoji = "🔍"
	}

	tag := types.Tag(strings.ToLower(strings.TrimSpace(parsed.Tag)))
	if !types.ValidTag(tag) {
		tag = types.TagGeneral
	}
	rec.Tag = tag

	if parsed.InterestScore != nil && *parsed.InterestScore >= 1 && *parsed.InterestScore <= 10 {
		score := *parsed.InterestScore
		rec.InterestScore = &score
	} else {
		rec.InterestScore = nil
	}

	rec.Affiliations = ValidateAffiliations(parsed.Affiliations, rec.Authors, threshold)
	rec.Summarized = true
	return nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
