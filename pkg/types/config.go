package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "secdigest/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SearchConfig holds settings for the search stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// Queries is the list of search queries issued each run. The literal
	// query string is also the cache key: rewording a query produces a cache
	// miss, but records already stored from the old wording stay in place.
	Queries []string `json:"queries" yaml:"queries"`

	// PageSize is the number of results requested per API call (default 200).
	PageSize int `json:"page_size" yaml:"page_size"`

	// CacheTTL is how long a completed query's results are served from the
	// cache before a live fetch is issued again (default 1h).
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`

	// DelayMin and DelayMax bound the randomized pause between consecutive
	// API calls (defaults 500ms and 1.5s).
	DelayMin time.Duration `json:"delay_min" yaml:"delay_min"`
	DelayMax time.Duration `json:"delay_max" yaml:"delay_max"`
}

// DownloadConfig holds settings for the download stage.
type DownloadConfig struct {
	HTTPConfig `yaml:",inline"`

	// PapersDir is the directory PDFs are downloaded into.
	PapersDir string `json:"papers_dir" yaml:"papers_dir"`

	// Parallelism bounds the number of concurrent fetches (default 4).
	Parallelism int `json:"parallelism" yaml:"parallelism"`
}

// AIConfig holds shared settings for stages that call the chat-completion API.
type AIConfig struct {
	// BaseURL is the API base (e.g. "https://api.openai.com/v1").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Model is the model identifier.
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for transient API failures
	// (default 3). Malformed model output is never retried within a run.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// SummarizeConfig holds settings for the summarize stage.
type SummarizeConfig struct {
	AIConfig `yaml:",inline"`

	// SystemPrompt is the summarizer instruction. Empty selects the built-in
	// default.
	SystemPrompt string `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`

	// CallDelay is the fixed pause between consecutive model calls (default 1s).
	CallDelay time.Duration `json:"call_delay" yaml:"call_delay"`
}

// ClassifyConfig holds settings for the relevance and project stages.
type ClassifyConfig struct {
	// RelevancePrompt and ProjectPrompt are the classifier instructions.
	// Empty selects the built-in defaults.
	RelevancePrompt string `json:"relevance_prompt,omitempty" yaml:"relevance_prompt,omitempty"`
	ProjectPrompt   string `json:"project_prompt,omitempty" yaml:"project_prompt,omitempty"`

	// AffiliationThreshold is the fraction of a record's author surnames that
	// must be attributable to a claimed affiliation for it to be kept
	// (default 0.5).
	AffiliationThreshold float64 `json:"affiliation_threshold" yaml:"affiliation_threshold"`
}

// OutputConfig holds settings for digest rendering.
type OutputConfig struct {
	// SummariesDir is the directory digest files are written into.
	SummariesDir string `json:"summaries_dir" yaml:"summaries_dir"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	// DBPath is the SQLite database holding records and the search cache.
	DBPath string `json:"db_path" yaml:"db_path"`

	// ProjectsFile is the optional project registry. Absence disables
	// project classification entirely.
	ProjectsFile string `json:"projects_file,omitempty" yaml:"projects_file,omitempty"`

	// RetentionDays is the trailing window within which records are eligible
	// for stage work (default 7).
	RetentionDays int `json:"retention_days" yaml:"retention_days"`

	Search    SearchConfig    `json:"search" yaml:"search"`
	Download  DownloadConfig  `json:"download" yaml:"download"`
	Summarize SummarizeConfig `json:"summarize" yaml:"summarize"`
	Classify  ClassifyConfig  `json:"classify" yaml:"classify"`
	Output    OutputConfig    `json:"output" yaml:"output"`
}
