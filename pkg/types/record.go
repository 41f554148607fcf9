// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Tag classifies a summarized paper by topic.
type Tag string

const (
	// TagSecurity marks papers about the security of AI systems.
	TagSecurity Tag = "security"
	// TagCyber marks papers about using AI for cybersecurity tasks.
	TagCyber Tag = "cyber"
	// TagGeneral marks everything else.
	TagGeneral Tag = "general"
)

// ValidTag reports whether t is one of the known tag values.
func ValidTag(t Tag) bool {
	return t == TagSecurity || t == TagCyber || t == TagGeneral
}

// DefaultSortScore is substituted for a missing interest score when ordering
// output. It is never written back to the store.
const DefaultSortScore = 5

// PaperRecord tracks one search hit through its full pipeline lifecycle.
// Identity fields (ID through Authors) are set at search time and never
// overwritten by a later search. Stage fields are added progressively:
// download sets Downloaded and PDFPath; summarize sets Summarized, Points,
// OneLiner, Emoji, Tag, Affiliations, and InterestScore; the relevance
// stage sets Relevant; the project stage sets Projects.
//
// Pointer and slice fields use nil to mean "stage not yet run": Relevant is
// nil until the relevance stage runs, Projects is nil until the project stage
// runs (an empty non-nil slice means the stage ran and matched nothing), and
// InterestScore is nil for legacy records.
type PaperRecord struct {
	// ID is the arXiv identifier, with optional version suffix (e.g. "2601.00001v1").
	ID string `json:"id" yaml:"id"`

	// URL is the PDF download URL.
	URL string `json:"url" yaml:"url"`

	// Published is the publication timestamp, normalized to UTC.
	Published time.Time `json:"published" yaml:"published"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order, from search metadata.
	Authors []string `json:"authors" yaml:"authors"`

	// Downloaded is set once the PDF has been fetched to PDFPath.
	Downloaded bool   `json:"downloaded" yaml:"downloaded"`
	PDFPath    string `json:"pdf_path,omitempty" yaml:"pdf_path,omitempty"`

	// Summarized is set once the summarize stage has completed.
	Summarized bool     `json:"summarized" yaml:"summarized"`
	Points     []string `json:"points,omitempty" yaml:"points,omitempty"`
	OneLiner   string   `json:"one_liner,omitempty" yaml:"one_liner,omitempty"`
	Emoji      string   `json:"emoji,omitempty" yaml:"emoji,omitempty"`
	Tag        Tag      `json:"tag,omitempty" yaml:"tag,omitempty"`

	// Affiliations holds only affiliation strings that passed validation
	// against this record's author list.
	Affiliations []string `json:"affiliations,omitempty" yaml:"affiliations,omitempty"`

	// Relevant is the relevance-classification verdict; nil until classified.
	Relevant *bool `json:"relevant,omitempty" yaml:"relevant,omitempty"`

	// Projects holds validated project ids; nil until the project stage runs.
	Projects []string `json:"projects,omitempty" yaml:"projects,omitempty"`

	// InterestScore is a 1-10 ranking assigned at summarize time, used only
	// for output ordering.
	InterestScore *int `json:"interest_score,omitempty" yaml:"interest_score,omitempty"`
}

// SortScore returns the interest score for ordering, substituting
// DefaultSortScore when the record has none.
func (r *PaperRecord) SortScore() int {
	if r.InterestScore == nil {
		return DefaultSortScore
	}
	return *r.InterestScore
}

// IsRelevant reports whether the record has been classified relevant.
func (r *PaperRecord) IsRelevant() bool {
	return r.Relevant != nil && *r.Relevant
}

// Borderline reports whether the record carries a security-adjacent tag but
// was auto-classified irrelevant. Borderline records are surfaced for manual
// review before output.
func (r *PaperRecord) Borderline() bool {
	if r.Relevant == nil || *r.Relevant {
		return false
	}
	return r.Tag == TagSecurity || r.Tag == TagCyber
}
