// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/pdiddy/secdigest/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "papers.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func fullRecord() *types.PaperRecord {
	relevant := true
	score := 7
	return &types.PaperRecord{
		ID:            "2601.00001v1",
		URL:           "https://arxiv.org/pdf/2601.00001v1.pdf",
		Published:     time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		Title:         "A Paper",
		Authors:       []string{"Alice Smith", "Bob Jones"},
		Downloaded:    true,
		PDFPath:       "/tmp/2601.00001v1.pdf",
		Summarized:    true,
		Points:        []string{"one", "two", "three"},
		OneLiner:      "short",
		Emoji:         "🔐",
		Tag:           types.TagSecurity,
		Affiliations:  []string{"MIT"},
		Relevant:      &relevant,
		Projects:      []string{"fuzzing"},
		InterestScore: &score,
	}
}

func TestUpsertGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	want := fullRecord()
	if err := s.Upsert(want); err != nil {
		t.Fatal(err)
	}

	got, ok, err := s.Get(want.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("record not found after upsert")
	}

	if got.ID != want.ID || got.Title != want.Title || got.URL != want.URL {
		t.Errorf("identity fields differ: %+v", got)
	}
	if !got.Published.Equal(want.Published) {
		t.Errorf("published = %v, want %v", got.Published, want.Published)
	}
	if len(got.Authors) != 2 || got.Authors[0] != "Alice Smith" {
		t.Errorf("authors = %v", got.Authors)
	}
	if !got.Downloaded || got.PDFPath != want.PDFPath || !got.Summarized {
		t.Errorf("stage flags differ: %+v", got)
	}
	if len(got.Points) != 3 || got.OneLiner != "short" || got.Emoji != "🔐" || got.Tag != types.TagSecurity {
		t.Errorf("summary fields differ: %+v", got)
	}
	if !got.IsRelevant() {
		t.Error("relevant lost")
	}
	if got.InterestScore == nil || *got.InterestScore != 7 {
		t.Errorf("interest score = %v", got.InterestScore)
	}
}

func TestGetAbsent(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.Get("missing")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("absent record reported present")
	}
}

func TestNilAndEmptyDistinctions(t *testing.T) {
	s := openTestStore(t)

	// Stage-not-run record: everything optional is nil.
	fresh := &types.PaperRecord{
		ID:        "fresh1",
		URL:       "u",
		Published: time.Now().UTC().Truncate(time.Second),
		Title:     "t",
	}
	if err := s.Upsert(fresh); err != nil {
		t.Fatal(err)
	}
	got, _, _ := s.Get("fresh1")
	if got.Relevant != nil {
		t.Error("relevant should be nil before classification")
	}
	if got.Projects != nil {
		t.Error("projects should be nil before matching")
	}
	if got.InterestScore != nil {
		t.Error("interest score should be nil for unsummarized record")
	}

	// Ran-and-matched-nothing: empty non-nil slice must survive the trip.
	fresh.Projects = []string{}
	if err := s.Upsert(fresh); err != nil {
		t.Fatal(err)
	}
	got, _, _ = s.Get("fresh1")
	if got.Projects == nil {
		t.Error("empty project list collapsed to nil")
	}
	if len(got.Projects) != 0 {
		t.Errorf("projects = %v", got.Projects)
	}
}

func TestAllOrdersNewestFirst(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		rec := &types.PaperRecord{
			ID:        id,
			URL:       "u",
			Title:     "t",
			Published: base.AddDate(0, 0, i),
		}
		if err := s.Upsert(rec); err != nil {
			t.Fatal(err)
		}
	}

	records, err := s.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records", len(records))
	}
	if records[0].ID != "c" || records[2].ID != "a" {
		t.Errorf("order = %s, %s, %s", records[0].ID, records[1].ID, records[2].ID)
	}
}

func TestResetFieldsSummary(t *testing.T) {
	s := openTestStore(t)
	rec := fullRecord()
	if err := s.Upsert(rec); err != nil {
		t.Fatal(err)
	}

	if err := s.ResetFields(rec.ID, SummaryFields...); err != nil {
		t.Fatal(err)
	}

	got, _, _ := s.Get(rec.ID)
	if got.Summarized {
		t.Error("summarized flag not reverted")
	}
	if got.Points != nil || got.OneLiner != "" || got.Emoji != "" || got.Tag != "" {
		t.Errorf("summary fields survive reset: %+v", got)
	}
	if got.Relevant != nil || got.Projects != nil || got.InterestScore != nil {
		t.Errorf("classification fields survive reset: %+v", got)
	}
	if !got.Downloaded || got.PDFPath == "" {
		t.Error("download state must survive a summary reset")
	}
}

func TestResetFieldsPDFPathRevertsDownload(t *testing.T) {
	s := openTestStore(t)
	rec := fullRecord()
	if err := s.Upsert(rec); err != nil {
		t.Fatal(err)
	}

	if err := s.ResetFields(rec.ID, FieldPDFPath); err != nil {
		t.Fatal(err)
	}
	got, _, _ := s.Get(rec.ID)
	if got.Downloaded || got.PDFPath != "" {
		t.Error("pdf_path reset must revert the downloaded flag")
	}
	if !got.Summarized {
		t.Error("summary must survive a pdf_path reset")
	}
}

func TestResetFieldsUnknownField(t *testing.T) {
	s := openTestStore(t)
	rec := fullRecord()
	if err := s.Upsert(rec); err != nil {
		t.Fatal(err)
	}
	if err := s.ResetFields(rec.ID, "no_such_field"); err == nil {
		t.Error("unknown field name must be rejected")
	}
}

func TestResetFieldsMissingRecord(t *testing.T) {
	s := openTestStore(t)
	if err := s.ResetFields("absent", FieldProjects); err == nil {
		t.Error("resetting an absent record must fail")
	}
}

func TestCountByStage(t *testing.T) {
	s := openTestStore(t)
	relevant := true

	newRec := &types.PaperRecord{ID: "n1", URL: "u", Title: "t", Published: time.Now().UTC()}
	dl := &types.PaperRecord{ID: "d1", URL: "u", Title: "t", Published: time.Now().UTC(), Downloaded: true}
	sum := &types.PaperRecord{ID: "s1", URL: "u", Title: "t", Published: time.Now().UTC(), Downloaded: true, Summarized: true}
	cls := &types.PaperRecord{ID: "c1", URL: "u", Title: "t", Published: time.Now().UTC(), Downloaded: true, Summarized: true, Relevant: &relevant}
	prj := &types.PaperRecord{ID: "p1", URL: "u", Title: "t", Published: time.Now().UTC(), Downloaded: true, Summarized: true, Relevant: &relevant, Projects: []string{}}

	for _, r := range []*types.PaperRecord{newRec, dl, sum, cls, prj} {
		if err := s.Upsert(r); err != nil {
			t.Fatal(err)
		}
	}

	counts, err := s.CountByStage()
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]int{"new": 1, "downloaded": 1, "summarized": 1, "classified": 1, "project-matched": 1}
	for stage, n := range want {
		if counts[stage] != n {
			t.Errorf("counts[%s] = %d, want %d", stage, counts[stage], n)
		}
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	rec := fullRecord()
	for i := 0; i < 3; i++ {
		if err := s.Upsert(rec); err != nil {
			t.Fatal(err)
		}
	}
	records, err := s.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records after repeated upserts", len(records))
	}
}

func TestReopenSeesCommittedWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "papers.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(fullRecord()); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	if _, ok, _ := s2.Get("2601.00001v1"); !ok {
		t.Error("record lost across reopen")
	}
}
