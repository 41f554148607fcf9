// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pdiddy/secdigest/pkg/types"
)

type relevanceResponse struct {
	Relevant bool `json:"relevant"`
}

type projectsResponse struct {
	Projects []string `json:"projects"`
}

// ClassifyRelevance asks the model whether a summarized record is worth
// sharing. Records tagged general are ruled irrelevant without a model call.
// On failure the record defaults to relevant, so a flaky model can only ever
// over-include papers; the returned error lets the caller log the condition.
func ClassifyRelevance(ctx context.Context, llm Completer, cfg types.ClassifyConfig, maxRetries int, rec *types.PaperRecord) (bool, error) {
	if rec.Tag == types.TagGeneral {
		return false, nil
	}

	system := cfg.RelevancePrompt
	if system == "" {
		system = DefaultRelevancePrompt
	}

	var raw []byte
	err := callWithRetry(ctx, maxRetries, func() error {
		var callErr error
		raw, callErr = llm.Complete(ctx, system, recordContext(rec))
		return callErr
	})
	if err != nil {
		return true, fmt.Errorf("classifying relevance of %s: %w", rec.ID, err)
	}

	var parsed relevanceResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return true, fmt.Errorf("classifying relevance of %s: %w: %v", rec.ID, ErrMalformedOutput, err)
	}
	return parsed.Relevant, nil
}

// ClassifyProjects matches a record against the project registry. Ids the
// model invents are dropped. On failure the record gets an empty match list
// rather than none at all, so a flaky model cannot leave the stage pending
// forever; the returned error lets the caller log the condition.
func ClassifyProjects(ctx context.Context, llm Completer, cfg types.ClassifyConfig, maxRetries int, registry []types.ProjectDefinition, rec *types.PaperRecord) ([]string, error) {
	tmpl := cfg.ProjectPrompt
	if tmpl == "" {
		tmpl = DefaultProjectPrompt
	}
	system, err := projectPrompt(tmpl, registry)
	if err != nil {
		return []string{}, fmt.Errorf("matching projects for %s: %w", rec.ID, err)
	}

	var raw []byte
	err = callWithRetry(ctx, maxRetries, func() error {
		var callErr error
		raw, callErr = llm.Complete(ctx, system, recordContext(rec))
		return callErr
	})
	if err != nil {
		return []string{}, fmt.Errorf("matching projects for %s: %w", rec.ID, err)
	}

	var parsed projectsResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return []string{}, fmt.Errorf("matching projects for %s: %w: %v", rec.ID, ErrMalformedOutput, err)
	}
	return FilterProjects(parsed.Projects, registry), nil
}
