// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/secdigest/internal/httputil"
	"github.com/pdiddy/secdigest/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// ArxivBackend queries the arXiv API.
type ArxivBackend struct {
	Client *http.Client
	Config types.SearchConfig
}

// Name returns the backend identifier.
func (b *ArxivBackend) Name() string { return "arxiv" }

// Page fetches one page of results for query starting at offset start.
// arXiv signals rate limiting with 429/503, which the retry helper absorbs.
func (b *ArxivBackend) Page(ctx context.Context, query string, start, pageSize int) (Page, error) {
	if pageSize <= 0 {
		pageSize = 200
	}

	// arXiv queries carry pre-encoded operators (+AND+, quoted phrases), so
	// the query string is passed through rather than form-encoded.
	apiURL := fmt.Sprintf("%s?search_query=%s&start=%d&max_results=%d",
		arxivAPIBase, query, start, pageSize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return Page{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", b.Config.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 0)
	if err != nil {
		return Page{}, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return Page{}, fmt.Errorf("parsing arXiv response: %w", err)
	}

	page := Page{
		Total: feed.TotalResults,
		Start: feed.StartIndex,
	}
	for _, entry := range feed.Entries {
		id := arxivIDFromAbs(entry.ID)
		if id == "" {
			continue
		}

		hit := types.SearchHit{
			ID:    id,
			URL:   pdfURLFromAbs(entry.ID),
			Title: strings.TrimSpace(entry.Title),
		}
		for _, a := range entry.Authors {
			hit.Authors = append(hit.Authors, strings.TrimSpace(a.Name))
		}
		if t, parseErr := time.Parse(time.RFC3339, entry.Published); parseErr == nil {
			hit.Published = t.UTC()
		}
		page.Hits = append(page.Hits, hit)
	}
	return page, nil
}

// arXiv Atom feed XML structures. The opensearch extension carries the
// pagination counters used to decide whether another page remains.
type arxivFeed struct {
	TotalResults int          `xml:"totalResults"`
	StartIndex   int          `xml:"startIndex"`
	Entries      []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Published string        `xml:"published"`
	Authors   []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

// arxivIDFromAbs pulls the versioned arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2601.00001v1" -> "2601.00001v1").
func arxivIDFromAbs(absURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(absURL, prefix)
	if idx < 0 {
		return ""
	}
	id := absURL[idx+len(prefix):]
	if u, err := url.PathUnescape(id); err == nil {
		id = u
	}
	return id
}

// pdfURLFromAbs rewrites an abstract-page URL into its PDF URL.
func pdfURLFromAbs(absURL string) string {
	return strings.Replace(absURL, "/abs/", "/pdf/", 1) + ".pdf"
}
