// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives the full digest run: search, download, summarize,
// classify, review and render. Stages advance records monotonically; a
// record that fails one stage is skipped by later stages this run and picked
// up again next run. All store writes happen on the pipeline goroutine.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pdiddy/secdigest/internal/download"
	"github.com/pdiddy/secdigest/internal/render"
	"github.com/pdiddy/secdigest/internal/search"
	"github.com/pdiddy/secdigest/internal/store"
	"github.com/pdiddy/secdigest/internal/summarize"
	"github.com/pdiddy/secdigest/pkg/types"
)

// Overridable in tests.
var (
	timeNow = time.Now
	sleep   = time.Sleep
)

// Pipeline holds the wired stage dependencies for one run.
type Pipeline struct {
	Store    *store.Store
	Backend  search.Backend
	HTTP     *http.Client
	LLM      summarize.Completer
	Registry []types.ProjectDefinition
	Config   types.PipelineConfig
	Out      io.Writer
	In       io.Reader
}

// RunOptions selects per-run behavior. The zero value is a normal
// incremental run.
type RunOptions struct {
	// ForceSearch bypasses the search cache.
	ForceSearch bool

	// Resummarize clears all summary-derived fields on eligible records
	// before processing, forcing the summarize and classification stages to
	// run again.
	Resummarize bool

	// ReclassifyProjects clears only the project matches on eligible records.
	ReclassifyProjects bool

	// ShareOnly skips search, download and model stages and renders the
	// digest from whatever the store already holds.
	ShareOnly bool

	// IncludeGeneral keeps records classified not relevant in the digest.
	IncludeGeneral bool

	// NoInteractive skips the borderline review prompt.
	NoInteractive bool
}

// Run executes the pipeline. Per-record failures are reported as warnings
// and do not abort the run; only store and infrastructure failures do.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) error {
	if !opts.ShareOnly {
		if err := p.ingest(ctx, opts); err != nil {
			return err
		}
		if err := p.process(ctx, opts); err != nil {
			return err
		}
	}
	return p.share(opts)
}

// ingest runs the search queries and merges new hits into the store.
func (p *Pipeline) ingest(ctx context.Context, opts RunOptions) error {
	hits, err := search.Run(ctx, p.Backend, p.Store, p.Config.Search, opts.ForceSearch, p.Out)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if _, err := search.Merge(p.Store, hits, p.Out); err != nil {
		return fmt.Errorf("merging hits: %w", err)
	}
	return nil
}

// process advances every eligible record through download, summarize,
// relevance and project matching.
func (p *Pipeline) process(ctx context.Context, opts RunOptions) error {
	eligible, err := p.eligibleRecords(opts)
	if err != nil {
		return err
	}

	if err := p.downloadAll(ctx, eligible); err != nil {
		return err
	}
	if err := p.summarizeAll(ctx, eligible); err != nil {
		return err
	}
	if err := p.classifyAll(ctx, eligible); err != nil {
		return err
	}

	counts, err := p.Store.CountByStage()
	if err != nil {
		return err
	}
	fmt.Fprintf(p.Out, "store: %d new, %d downloaded, %d summarized, %d classified, %d project-matched\n",
		counts["new"], counts["downloaded"], counts["summarized"],
		counts["classified"], counts["project-matched"])
	return nil
}

// eligibleRecords loads the records inside the retention window, applying
// any requested resets first.
func (p *Pipeline) eligibleRecords(opts RunOptions) ([]*types.PaperRecord, error) {
	records, err := p.Store.All()
	if err != nil {
		return nil, err
	}
	eligible := search.Eligible(records, timeNow(), p.retentionDays())

	var resetFields []string
	switch {
	case opts.Resummarize:
		resetFields = store.SummaryFields
	case opts.ReclassifyProjects:
		resetFields = []string{store.FieldProjects}
	default:
		return eligible, nil
	}

	for _, r := range eligible {
		if err := p.Store.ResetFields(r.ID, resetFields...); err != nil {
			return nil, err
		}
	}

	// Reload so in-memory records reflect the reset.
	records, err = p.Store.All()
	if err != nil {
		return nil, err
	}
	return search.Eligible(records, timeNow(), p.retentionDays()), nil
}

// downloadAll fetches missing PDFs in parallel and folds the results back
// into the store one at a time.
func (p *Pipeline) downloadAll(ctx context.Context, eligible []*types.PaperRecord) error {
	results, _ := download.FetchAll(ctx, p.HTTP, p.Config.Download, eligible, p.Out)
	for _, res := range results {
		if res.Err != nil {
			continue
		}
		if !res.Fetched && res.Record.Downloaded && res.Record.PDFPath == res.Path {
			continue
		}
		res.Record.Downloaded = true
		res.Record.PDFPath = res.Path
		if err := p.Store.Upsert(res.Record); err != nil {
			return fmt.Errorf("saving download state: %w", err)
		}
	}
	return nil
}

// summarizeAll runs the model summary over every downloaded, unsummarized
// record. Each record's result is written before the next one starts.
func (p *Pipeline) summarizeAll(ctx context.Context, eligible []*types.PaperRecord) error {
	for _, r := range eligible {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.Summarized || !r.Downloaded {
			continue
		}

		text, err := download.ExtractText(r.PDFPath)
		if err != nil {
			if errors.Is(err, download.ErrUnreadable) {
				fmt.Fprintf(p.Out, "warning: skipping %s: %v\n", r.ID, err)
				continue
			}
			return err
		}

		sleep(p.callDelay())
		if err := summarize.Summarize(ctx, p.LLM, p.Config.Summarize, p.affiliationThreshold(), r, text); err != nil {
			fmt.Fprintf(p.Out, "warning: %v\n", err)
			continue
		}
		if err := p.Store.Upsert(r); err != nil {
			return fmt.Errorf("saving summary: %w", err)
		}
	}
	return nil
}

// classifyAll runs relevance and project classification over summarized
// records that have not been classified yet. Both classifiers fail safe, so
// a model failure is logged and the fail-safe verdict is stored.
func (p *Pipeline) classifyAll(ctx context.Context, eligible []*types.PaperRecord) error {
	maxRetries := p.Config.Summarize.MaxRetries

	for _, r := range eligible {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !r.Summarized || r.Relevant != nil {
			continue
		}

		if r.Tag != types.TagGeneral {
			sleep(p.callDelay())
		}
		relevant, err := summarize.ClassifyRelevance(ctx, p.LLM, p.Config.Classify, maxRetries, r)
		if err != nil {
			fmt.Fprintf(p.Out, "warning: %v\n", err)
		}
		r.Relevant = &relevant
		if err := p.Store.Upsert(r); err != nil {
			return fmt.Errorf("saving relevance verdict: %w", err)
		}
	}

	// No registry means project matching is disabled, and Projects stays nil
	// on every record.
	if len(p.Registry) == 0 {
		return nil
	}

	for _, r := range eligible {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Project matching only applies to relevant records, so a record
		// accepted at review time is matched on the following run.
		if !r.Summarized || !r.IsRelevant() || r.Projects != nil {
			continue
		}

		sleep(p.callDelay())
		ids, err := summarize.ClassifyProjects(ctx, p.LLM, p.Config.Classify, maxRetries, p.Registry, r)
		if err != nil {
			fmt.Fprintf(p.Out, "warning: %v\n", err)
		}
		r.Projects = ids
		if err := p.Store.Upsert(r); err != nil {
			return fmt.Errorf("saving project matches: %w", err)
		}
	}
	return nil
}

// share reviews borderline verdicts, ranks the survivors and writes the
// digest files.
func (p *Pipeline) share(opts RunOptions) error {
	records, err := p.Store.All()
	if err != nil {
		return err
	}
	eligible := search.Eligible(records, timeNow(), p.retentionDays())

	if !opts.NoInteractive {
		if err := p.reviewBorderline(eligible); err != nil {
			return err
		}
	}

	ranked := Rank(eligible, opts.IncludeGeneral)
	if len(ranked) == 0 {
		fmt.Fprintln(p.Out, "nothing to share")
		return nil
	}

	mdPath, emlPath, err := render.WriteFiles(p.Config.Output.SummariesDir, timeNow(), ranked)
	if err != nil {
		return fmt.Errorf("writing digest: %w", err)
	}
	fmt.Fprintf(p.Out, "wrote %s and %s (%d papers)\n", mdPath, emlPath, len(ranked))

	return p.Store.Flush()
}

func (p *Pipeline) retentionDays() int {
	if p.Config.RetentionDays <= 0 {
		return 7
	}
	return p.Config.RetentionDays
}

func (p *Pipeline) callDelay() time.Duration {
	if p.Config.Summarize.CallDelay <= 0 {
		return time.Second
	}
	return p.Config.Summarize.CallDelay
}

func (p *Pipeline) affiliationThreshold() float64 {
	if p.Config.Classify.AffiliationThreshold <= 0 {
		return 0.5
	}
	return p.Config.Classify.AffiliationThreshold
}
