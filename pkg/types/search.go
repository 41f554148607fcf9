// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// SearchHit is the metadata for one search result, as returned by a search
// backend before any pipeline stage has run.
type SearchHit struct {
	// ID is the arXiv identifier, with optional version suffix.
	ID string `json:"id"`

	// URL is the PDF download URL derived from the abstract page.
	URL string `json:"url"`

	// Published is the publication timestamp.
	Published time.Time `json:"published"`

	// Title is the paper title.
	Title string `json:"title"`

	// Authors lists author names in source order.
	Authors []string `json:"authors"`
}

// NewRecord builds a minimal PaperRecord from a search hit: identity fields
// only, all stage flags unset. The publication timestamp is normalized to UTC.
func (h SearchHit) NewRecord() *PaperRecord {
	return &PaperRecord{
		ID:        h.ID,
		URL:       h.URL,
		Published: h.Published.UTC(),
		Title:     h.Title,
		Authors:   h.Authors,
	}
}
