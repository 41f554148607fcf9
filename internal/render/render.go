// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render writes the ranked digest as a markdown file and as an
// Outlook-compatible draft email. The email carries the X-Unsent header so
// opening it in a mail client produces an editable draft rather than a
// received message.
package render

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/secdigest/pkg/types"
)

// WriteFiles renders records into dir as <date>.md and <date>.eml and
// returns both paths. Records are written in the order given.
func WriteFiles(dir string, date time.Time, records []*types.PaperRecord) (mdPath, emlPath string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("creating summaries directory: %w", err)
	}

	day := date.UTC().Format("2006-01-02")
	mdPath = filepath.Join(dir, day+".md")
	emlPath = filepath.Join(dir, day+".eml")

	if err := os.WriteFile(mdPath, Markdown(date, records), 0o644); err != nil {
		return "", "", fmt.Errorf("writing %s: %w", mdPath, err)
	}
	if err := os.WriteFile(emlPath, EML(date, records), 0o644); err != nil {
		return "", "", fmt.Errorf("writing %s: %w", emlPath, err)
	}
	return mdPath, emlPath, nil
}

// Markdown renders the digest as a markdown document.
func Markdown(date time.Time, records []*types.PaperRecord) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# Papers digest %s\n", date.UTC().Format("2006-01-02"))

	for _, r := range records {
		fmt.Fprintf(&buf, "\n## %s %s\n\n", r.Emoji, r.Title)
		if line := byline(r); line != "" {
			fmt.Fprintf(&buf, "*%s*\n\n", line)
		}
		fmt.Fprintf(&buf, "%s\n\n", r.OneLiner)
		for _, p := range r.Points {
			fmt.Fprintf(&buf, "- %s\n", p)
		}
		fmt.Fprintf(&buf, "\n%s | [%s](%s)", interest(r), r.ID, r.URL)
		if len(r.Projects) > 0 {
			fmt.Fprintf(&buf, " | projects: %s", strings.Join(r.Projects, ", "))
		}
		fmt.Fprintln(&buf)
	}
	return buf.Bytes()
}

// EML renders the digest as a draft email with an HTML body.
func EML(date time.Time, records []*types.PaperRecord) []byte {
	day := date.UTC().Format("2006-01-02")

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "X-Unsent: 1\r\n")
	fmt.Fprintf(&buf, "Subject: Papers digest %s\r\n", day)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: text/html; charset=utf-8\r\n")
	fmt.Fprintf(&buf, "\r\n")

	fmt.Fprintf(&buf, "<html><body>\r\n")
	fmt.Fprintf(&buf, "<h1>Papers digest %s</h1>\r\n", day)
	for _, r := range records {
		fmt.Fprintf(&buf, "<h2>%s %s</h2>\r\n", r.Emoji, html.EscapeString(r.Title))
		if line := byline(r); line != "" {
			fmt.Fprintf(&buf, "<p><i>%s</i></p>\r\n", html.EscapeString(line))
		}
		fmt.Fprintf(&buf, "<p>%s</p>\r\n", html.EscapeString(r.OneLiner))
		if len(r.Points) > 0 {
			fmt.Fprintf(&buf, "<ul>\r\n")
			for _, p := range r.Points {
				fmt.Fprintf(&buf, "<li>%s</li>\r\n", html.EscapeString(p))
			}
			fmt.Fprintf(&buf, "</ul>\r\n")
		}
		fmt.Fprintf(&buf, "<p>%s | <a href=\"%s\">%s</a>", interest(r), r.URL, r.ID)
		if len(r.Projects) > 0 {
			fmt.Fprintf(&buf, " | projects: %s", html.EscapeString(strings.Join(r.Projects, ", ")))
		}
		fmt.Fprintf(&buf, "</p>\r\n")
	}
	fmt.Fprintf(&buf, "</body></html>\r\n")
	return buf.Bytes()
}

// byline joins authors and validated affiliations into one line. Author
// lists longer than five are truncated with an et al. marker.
func byline(r *types.PaperRecord) string {
	authors := r.Authors
	suffix := ""
	if len(authors) > 5 {
		authors = authors[:5]
		suffix = " et al."
	}

	line := strings.Join(authors, ", ") + suffix
	if len(r.Affiliations) > 0 {
		aff := strings.Join(r.Affiliations, ", ")
		if line == "" {
			return aff
		}
		line += " (" + aff + ")"
	}
	return line
}

// interest renders the interest indicator. Records without a stored score
// show a dash rather than the substituted sort default.
func interest(r *types.PaperRecord) string {
	if r.InterestScore == nil {
		return "interest -/10"
	}
	return fmt.Sprintf("interest %d/10", *r.InterestScore)
}
