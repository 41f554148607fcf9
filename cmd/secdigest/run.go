// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/secdigest/internal/pipeline"
	"github.com/pdiddy/secdigest/internal/search"
	"github.com/pdiddy/secdigest/internal/store"
	"github.com/pdiddy/secdigest/internal/summarize"
	"github.com/pdiddy/secdigest/pkg/types"
)

// defaultQueries are the arXiv queries issued when the config file does not
// list any. Queries are written in arXiv's pre-encoded form: quoted phrases
// as %22...%22, spaces as +.
var defaultQueries = []string{
	`all:%22prompt+injection%22`,
	`all:%22jailbreak%22+AND+all:%22language+model%22`,
	`all:%22large+language+model%22+AND+all:%22vulnerability%22`,
	`all:%22machine+learning%22+AND+cat:cs.CR`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full digest pipeline",
	Long: `Run executes one digest pass: search arXiv, merge new hits into the
record store, download missing PDFs, summarize and classify them with the
model, review borderline verdicts, and write the digest files.

Interrupted runs are safe to repeat; completed work is never redone.`,
	RunE: runPipeline,
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg := buildConfig(cmd)

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	registry, err := types.LoadProjects(cfg.ProjectsFile)
	if err != nil {
		return err
	}
	if len(registry) > 0 {
		fmt.Fprintf(os.Stderr, "Project registry: %v\n", types.ProjectIDs(registry))
	}

	httpClient := &http.Client{Timeout: cfg.Search.Timeout}

	p := &pipeline.Pipeline{
		Store:    st,
		Backend:  &search.ArxivBackend{Client: httpClient, Config: cfg.Search},
		HTTP:     httpClient,
		LLM:      &summarize.OpenAIClient{Client: &http.Client{Timeout: 5 * time.Minute}, Config: cfg.Summarize.AIConfig},
		Registry: registry,
		Config:   cfg,
		Out:      os.Stdout,
		In:       os.Stdin,
	}

	opts := pipeline.RunOptions{}
	opts.ForceSearch, _ = cmd.Flags().GetBool("force-search")
	opts.Resummarize, _ = cmd.Flags().GetBool("resummarize")
	opts.ReclassifyProjects, _ = cmd.Flags().GetBool("reclassify-projects")
	opts.ShareOnly, _ = cmd.Flags().GetBool("share-only")
	opts.IncludeGeneral, _ = cmd.Flags().GetBool("include-general")
	opts.NoInteractive, _ = cmd.Flags().GetBool("no-interactive")

	return p.Run(context.Background(), opts)
}

// buildConfig assembles the pipeline configuration from viper (config file
// and environment) with flag overrides for the common paths.
func buildConfig(cmd *cobra.Command) types.PipelineConfig {
	viper.SetDefault("retention_days", 7)
	viper.SetDefault("search.queries", defaultQueries)
	viper.SetDefault("search.page_size", 200)
	viper.SetDefault("search.cache_ttl", time.Hour)
	viper.SetDefault("search.delay_min", 500*time.Millisecond)
	viper.SetDefault("search.delay_max", 1500*time.Millisecond)
	viper.SetDefault("http.timeout", 60*time.Second)
	viper.SetDefault("http.user_agent", "secdigest/"+version)
	viper.SetDefault("download.parallelism", 4)
	viper.SetDefault("summarize.base_url", "https://api.openai.com/v1")
	viper.SetDefault("summarize.model", "gpt-4o-mini")
	viper.SetDefault("summarize.max_retries", 3)
	viper.SetDefault("summarize.call_delay", time.Second)
	viper.SetDefault("classify.affiliation_threshold", 0.5)

	httpCfg := types.HTTPConfig{
		Timeout:   viper.GetDuration("http.timeout"),
		UserAgent: viper.GetString("http.user_agent"),
	}

	cfg := types.PipelineConfig{
		RetentionDays: viper.GetInt("retention_days"),
		Search: types.SearchConfig{
			HTTPConfig: httpCfg,
			Queries:    viper.GetStringSlice("search.queries"),
			PageSize:   viper.GetInt("search.page_size"),
			CacheTTL:   viper.GetDuration("search.cache_ttl"),
			DelayMin:   viper.GetDuration("search.delay_min"),
			DelayMax:   viper.GetDuration("search.delay_max"),
		},
		Download: types.DownloadConfig{
			HTTPConfig:  httpCfg,
			Parallelism: viper.GetInt("download.parallelism"),
		},
		Summarize: types.SummarizeConfig{
			AIConfig: types.AIConfig{
				BaseURL:    viper.GetString("summarize.base_url"),
				Model:      viper.GetString("summarize.model"),
				APIKey:     secretDefault("openai-api-key", viper.GetString("summarize.api_key")),
				MaxRetries: viper.GetInt("summarize.max_retries"),
			},
			SystemPrompt: viper.GetString("summarize.system_prompt"),
			CallDelay:    viper.GetDuration("summarize.call_delay"),
		},
		Classify: types.ClassifyConfig{
			RelevancePrompt:      viper.GetString("classify.relevance_prompt"),
			ProjectPrompt:        viper.GetString("classify.project_prompt"),
			AffiliationThreshold: viper.GetFloat64("classify.affiliation_threshold"),
		},
	}

	cfg.DBPath, _ = cmd.Flags().GetString("db")
	cfg.ProjectsFile, _ = cmd.Flags().GetString("projects-file")
	cfg.Download.PapersDir, _ = cmd.Flags().GetString("papers-dir")
	cfg.Output.SummariesDir, _ = cmd.Flags().GetString("summaries-dir")
	if days, _ := cmd.Flags().GetInt("days"); days > 0 {
		cfg.RetentionDays = days
	}
	return cfg
}

func init() {
	runCmd.Flags().Bool("force-search", false, "bypass the search cache and query arXiv live")
	runCmd.Flags().Bool("resummarize", false, "clear summaries and classifications on eligible records and redo them")
	runCmd.Flags().Bool("reclassify-projects", false, "clear project matches on eligible records and redo them")
	runCmd.Flags().Bool("share-only", false, "skip search and model stages; render from the store as-is")
	runCmd.Flags().Bool("include-general", false, "keep papers classified not relevant in the digest")
	runCmd.Flags().Bool("no-interactive", false, "skip the borderline review prompt")
	runCmd.Flags().Int("days", 0, "retention window in days (0 = config value)")

	runCmd.Flags().String("db", "papers.db", "path to the SQLite record store")
	runCmd.Flags().String("papers-dir", "papers", "directory PDFs are downloaded into")
	runCmd.Flags().String("summaries-dir", "summaries", "directory digest files are written into")
	runCmd.Flags().String("projects-file", "projects.yaml", "project registry (absent file disables project matching)")

	rootCmd.AddCommand(runCmd)
}
