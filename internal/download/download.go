// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package download fetches paper PDFs and extracts their text.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pdiddy/secdigest/internal/httputil"
	"github.com/pdiddy/secdigest/pkg/types"
)

// Result reports the outcome of one fetch. Path is set on success, Err on
// failure. Fetched distinguishes a live download from a file that was
// already on disk. The caller folds results back into the store sequentially.
type Result struct {
	Record  *types.PaperRecord
	Path    string
	Fetched bool
	Err     error
}

// Stats summarizes a batch fetch.
type Stats struct {
	Downloaded int
	Skipped    int
	Failed     int
}

// FetchAll downloads the PDFs for every record with a bounded number of
// concurrent fetches. Records already marked downloaded whose file still
// exists are skipped. Results come back in record order so the caller can
// apply store writes deterministically. Workers never touch the store.
func FetchAll(ctx context.Context, client *http.Client, cfg types.DownloadConfig, records []*types.PaperRecord, w io.Writer) ([]Result, Stats) {
	parallelism := cfg.Parallelism
	if parallelism <= 0 {
		parallelism = 4
	}

	if err := os.MkdirAll(cfg.PapersDir, 0o755); err != nil {
		stats := Stats{Failed: len(records)}
		results := make([]Result, len(records))
		for i, rec := range records {
			results[i] = Result{Record: rec, Err: fmt.Errorf("creating papers directory: %w", err)}
		}
		return results, stats
	}

	results := make([]Result, len(records))
	sem := make(chan struct{}, parallelism)
	var wg sync.WaitGroup

	for i, rec := range records {
		if rec.Downloaded && rec.PDFPath != "" {
			if _, err := os.Stat(rec.PDFPath); err == nil {
				results[i] = Result{Record: rec, Path: rec.PDFPath}
				continue
			}
			// File went missing since the last run; fetch it again.
		}

		wg.Add(1)
		go func(i int, rec *types.PaperRecord) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			path, err := fetchOne(ctx, client, cfg, rec)
			results[i] = Result{Record: rec, Path: path, Fetched: err == nil, Err: err}
		}(i, rec)
	}
	wg.Wait()

	var stats Stats
	for _, res := range results {
		switch {
		case res.Err != nil:
			stats.Failed++
			fmt.Fprintf(w, "warning: download %s failed: %v\n", res.Record.ID, res.Err)
		case res.Fetched:
			stats.Downloaded++
		default:
			stats.Skipped++
		}
	}
	fmt.Fprintf(w, "downloads: %d fetched, %d cached, %d failed\n",
		stats.Downloaded, stats.Skipped, stats.Failed)
	return results, stats
}

// fetchOne downloads a single PDF to a temp file and renames it into place
// so a partial download never leaves a corrupt file behind.
func fetchOne(ctx context.Context, client *http.Client, cfg types.DownloadConfig, rec *types.PaperRecord) (string, error) {
	if rec.URL == "" {
		return "", fmt.Errorf("record %s has no URL", rec.ID)
	}

	dest := filepath.Join(cfg.PapersDir, PDFFileName(rec.ID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rec.URL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", rec.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: HTTP %d", rec.URL, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(cfg.PapersDir, "."+PDFFileName(rec.ID)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("writing %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("renaming into place: %w", err)
	}
	return dest, nil
}

// PDFFileName maps a record ID to its on-disk filename. arXiv IDs can carry
// a version suffix but contain no path separators once slashes are replaced.
func PDFFileName(id string) string {
	return strings.ReplaceAll(id, "/", "_") + ".pdf"
}
