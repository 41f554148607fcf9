// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/secdigest/pkg/types"
)

func init() {
	backoffBase = time.Millisecond
}

// fakeCompleter replays canned responses and counts calls.
type fakeCompleter struct {
	responses []string
	errs      []error
	calls     int
	lastUser  string
	lastSys   string
}

func (f *fakeCompleter) Complete(_ context.Context, system, user string) ([]byte, error) {
	i := f.calls
	f.calls++
	f.lastSys = system
	f.lastUser = user
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return []byte(f.responses[i]), nil
	}
	return []byte(f.responses[len(f.responses)-1]), nil
}

func testSummarizeConfig() types.SummarizeConfig {
	return types.SummarizeConfig{
		AIConfig: types.AIConfig{Model: "test-model", MaxRetries: 2},
	}
}

func TestSummarizeFillsRecord(t *testing.T) {
	llm := &fakeCompleter{responses: []string{`{
		"findings": ["first", "second", "third"],
		"one_liner": "A paper about things.",
		"emoji": "🔐",
		"tag": "security",
		"interest_score": 8,
		"affiliations": [{"name": "MIT", "authors": ["Alice Smith", "Bob Jones"]}]
	}`}}

	rec := &types.PaperRecord{
		ID:      "2601.00001v1",
		Title:   "Things",
		Authors: []string{"Alice Smith", "Bob Jones"},
	}
	if err := Summarize(context.Background(), llm, testSummarizeConfig(), 0.5, rec, "body text"); err != nil {
		t.Fatal(err)
	}

	if !rec.Summarized {
		t.Error("record not marked summarized")
	}
	if len(rec.Points) != 3 || rec.Points[0] != "first" {
		t.Errorf("points = %v", rec.Points)
	}
	if rec.OneLiner != "A paper about things." {
		t.Errorf("one liner = %q", rec.OneLiner)
	}
	if rec.Emoji != "🔐" || rec.Tag != types.TagSecurity {
		t.Errorf("emoji/tag = %q/%q", rec.Emoji, rec.Tag)
	}
	if rec.InterestScore == nil || *rec.InterestScore != 8 {
		t.Errorf("interest score = %v", rec.InterestScore)
	}
	if len(rec.Affiliations) != 1 || rec.Affiliations[0] != "MIT" {
		t.Errorf("affiliations = %v", rec.Affiliations)
	}
	if !strings.Contains(llm.lastUser, "body text") {
		t.Error("paper text missing from prompt")
	}
}

func TestSummarizeAppliesDefaults(t *testing.T) {
	tests := []struct {
		name      string
		response  string
		wantEmoji string
		wantTag   types.Tag
		wantScore *int
	}{
		{
			name:      "missing optional fields",
			response:  `{"findings": ["a"], "one_liner": "x"}`,
			wantEmoji: "🔍",
			wantTag:   types.TagGeneral,
		},
		{
			name:      "unknown tag",
			response:  `{"findings": ["a"], "one_liner": "x", "tag": "quantum"}`,
			wantEmoji: "🔍",
			wantTag:   types.TagGeneral,
		},
		{
			name:      "score above range dropped",
			response:  `{"findings": ["a"], "one_liner": "x", "interest_score": 42}`,
			wantEmoji: "🔍",
			wantTag:   types.TagGeneral,
		},
		{
			name:      "score below range dropped",
			response:  `{"findings": ["a"], "one_liner": "x", "interest_score": 0}`,
			wantEmoji: "🔍",
			wantTag:   types.TagGeneral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &fakeCompleter{responses: []string{tt.response}}
			rec := &types.PaperRecord{ID: "x", Title: "t"}
			if err := Summarize(context.Background(), llm, testSummarizeConfig(), 0.5, rec, "text"); err != nil {
				t.Fatal(err)
			}
			if rec.Emoji != tt.wantEmoji {
				t.Errorf("emoji = %q, want %q", rec.Emoji, tt.wantEmoji)
			}
			if rec.Tag != tt.wantTag {
				t.Errorf("tag = %q, want %q", rec.Tag, tt.wantTag)
			}
			if (rec.InterestScore == nil) != (tt.wantScore == nil) {
				t.Errorf("interest score = %v, want %v", rec.InterestScore, tt.wantScore)
			}
		})
	}
}

func TestSummarizeMalformedOutput(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"not json", "the paper is about X"},
		{"missing findings", `{"one_liner": "x"}`},
		{"missing one_liner", `{"findings": ["a"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &fakeCompleter{responses: []string{tt.response}}
			rec := &types.PaperRecord{ID: "x"}
			err := Summarize(context.Background(), llm, testSummarizeConfig(), 0.5, rec, "text")
			if !errors.Is(err, ErrMalformedOutput) {
				t.Errorf("err = %v, want ErrMalformedOutput", err)
			}
			if rec.Summarized {
				t.Error("record marked summarized despite malformed output")
			}
		})
	}
}

func TestCallWithRetryTransientError(t *testing.T) {
	llm := &fakeCompleter{
		responses: []string{"", "", `{"ok": true}`},
		errs:      []error{errors.New("boom"), errors.New("boom")},
	}

	var raw []byte
	err := callWithRetry(context.Background(), 3, func() error {
		var callErr error
		raw, callErr = llm.Complete(context.Background(), "s", "u")
		return callErr
	})
	if err != nil {
		t.Fatal(err)
	}
	if llm.calls != 3 {
		t.Errorf("calls = %d, want 3", llm.calls)
	}
	if string(raw) != `{"ok": true}` {
		t.Errorf("raw = %s", raw)
	}
}

func TestCallWithRetrySkipsMalformedOutput(t *testing.T) {
	calls := 0
	err := callWithRetry(context.Background(), 5, func() error {
		calls++
		return ErrMalformedOutput
	})
	if !errors.Is(err, ErrMalformedOutput) {
		t.Fatalf("err = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestValidateAffiliations(t *testing.T) {
	authors := []string{"Alice Smith", "Bob Jones", "Carol White", "Dan Green"}

	tests := []struct {
		name   string
		claims []AffiliationClaim
		want   []string
	}{
		{
			name: "full attribution retained",
			claims: []AffiliationClaim{
				{Name: "MIT", Authors: []string{"Alice Smith", "Bob Jones", "Carol White", "Dan Green"}},
			},
			want: []string{"MIT"},
		},
		{
			name: "half attribution retained at threshold",
			claims: []AffiliationClaim{
				{Name: "CMU", Authors: []string{"Alice Smith", "Bob Jones"}},
			},
			want: []string{"CMU"},
		},
		{
			name: "below threshold dropped",
			claims: []AffiliationClaim{
				{Name: "ETH", Authors: []string{"Alice Smith"}},
			},
			want: nil,
		},
		{
			name: "no matching authors dropped",
			claims: []AffiliationClaim{
				{Name: "Hallucinated U", Authors: []string{"Eve Black", "Frank Gray"}},
			},
			want: nil,
		},
		{
			name: "surname match ignores given names",
			claims: []AffiliationClaim{
				{Name: "Oxford", Authors: []string{"A. Smith", "B. Jones"}},
			},
			want: []string{"Oxford"},
		},
		{
			name: "mixed claims filtered independently",
			claims: []AffiliationClaim{
				{Name: "MIT", Authors: []string{"Alice Smith", "Bob Jones"}},
				{Name: "Nowhere", Authors: []string{"Eve Black"}},
			},
			want: []string{"MIT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateAffiliations(tt.claims, authors, 0.5)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestValidateAffiliationsNoAuthors(t *testing.T) {
	claims := []AffiliationClaim{{Name: "MIT"}, {Name: "CMU"}}
	got := ValidateAffiliations(claims, nil, 0.5)
	if len(got) != 2 {
		t.Errorf("got %v, want both claims kept when authors unknown", got)
	}
}

func TestFilterProjects(t *testing.T) {
	registry := []types.ProjectDefinition{
		{ID: "mesh-routing"},
		{ID: "fuzzing"},
	}

	got := FilterProjects([]string{"fuzzing", "invented", "fuzzing", "mesh-routing", ""}, registry)
	want := []string{"fuzzing", "mesh-routing"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}

	empty := FilterProjects([]string{"invented"}, registry)
	if empty == nil || len(empty) != 0 {
		t.Errorf("got %v, want non-nil empty slice", empty)
	}
}

func TestClassifyRelevanceGeneralShortCircuits(t *testing.T) {
	llm := &fakeCompleter{responses: []string{`{"relevant": true}`}}
	rec := &types.PaperRecord{ID: "x", Tag: types.TagGeneral}

	relevant, err := ClassifyRelevance(context.Background(), llm, types.ClassifyConfig{}, 1, rec)
	if err != nil {
		t.Fatal(err)
	}
	if relevant {
		t.Error("general record classified relevant")
	}
	if llm.calls != 0 {
		t.Errorf("model called %d times for a general record", llm.calls)
	}
}

func TestClassifyRelevanceVerdicts(t *testing.T) {
	for _, verdict := range []bool{true, false} {
		resp := `{"relevant": false}`
		if verdict {
			resp = `{"relevant": true}`
		}
		llm := &fakeCompleter{responses: []string{resp}}
		rec := &types.PaperRecord{ID: "x", Tag: types.TagSecurity, OneLiner: "s"}

		relevant, err := ClassifyRelevance(context.Background(), llm, types.ClassifyConfig{}, 1, rec)
		if err != nil {
			t.Fatal(err)
		}
		if relevant != verdict {
			t.Errorf("relevant = %v, want %v", relevant, verdict)
		}
	}
}

func TestClassifyRelevanceFailsOpen(t *testing.T) {
	llm := &fakeCompleter{responses: []string{"not json"}}
	rec := &types.PaperRecord{ID: "x", Tag: types.TagCyber, OneLiner: "s"}

	relevant, err := ClassifyRelevance(context.Background(), llm, types.ClassifyConfig{}, 1, rec)
	if err == nil {
		t.Fatal("expected error for malformed verdict")
	}
	if !relevant {
		t.Error("malformed verdict must default to relevant")
	}
}

func TestClassifyProjects(t *testing.T) {
	registry := []types.ProjectDefinition{
		{ID: "mesh-routing", Description: "routing work"},
		{ID: "fuzzing", Description: "fuzzing work"},
	}
	llm := &fakeCompleter{responses: []string{`{"projects": ["fuzzing", "invented"]}`}}
	rec := &types.PaperRecord{ID: "x", Title: "t", OneLiner: "s"}

	got, err := ClassifyProjects(context.Background(), llm, types.ClassifyConfig{}, 1, registry, rec)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "fuzzing" {
		t.Errorf("projects = %v", got)
	}
	if !strings.Contains(llm.lastSys, "mesh-routing: routing work") {
		t.Error("registry not rendered into system prompt")
	}
}

func TestClassifyProjectsFailsClosed(t *testing.T) {
	llm := &fakeCompleter{errs: []error{errors.New("boom")}, responses: []string{""}}
	llm.errs = []error{errors.New("boom"), errors.New("boom"), errors.New("boom"), errors.New("boom")}
	rec := &types.PaperRecord{ID: "x"}

	got, err := ClassifyProjects(context.Background(), llm, types.ClassifyConfig{}, 1, nil, rec)
	if err == nil {
		t.Fatal("expected error")
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, want non-nil empty slice on failure", got)
	}
}
