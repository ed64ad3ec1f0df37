package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "wizbak/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// APIConfig holds settings for talking to the note service.
type APIConfig struct {
	HTTPConfig `yaml:",inline"`

	// Server is the account server base URL used for login
	// (default "https://as.wiz.cn").
	Server string `json:"server" yaml:"server"`

	// RatePerSecond caps the number of API requests started per second
	// across all workers (default 10).
	RatePerSecond float64 `json:"rate_per_second" yaml:"rate_per_second"`

	// MaxRetries is the retry bound for transient request failures (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// SyncConfig holds settings for the planning stage of a backup run.
type SyncConfig struct {
	// Full forces a full resync, ignoring the index for inclusion decisions.
	Full bool `json:"full" yaml:"full"`

	// Folders restricts the run to these folder paths. Empty means all folders.
	Folders []string `json:"folders" yaml:"folders"`

	// Exclude drops any document whose folder path starts with one of these
	// prefixes. Applied before marker comparison.
	Exclude []string `json:"exclude" yaml:"exclude"`

	// Concurrency is the fetch worker pool size (default 4).
	Concurrency int `json:"concurrency" yaml:"concurrency"`
}

// OutputConfig holds settings for the on-disk output tree.
type OutputConfig struct {
	// Dir is the output root. Markdown files mirror the remote folder
	// hierarchy underneath it.
	Dir string `json:"dir" yaml:"dir"`

	// Flat disables the folder hierarchy and names files positionally
	// (document_0001.md, ...).
	Flat bool `json:"flat" yaml:"flat"`

	// IndexPath is the location of the sync index database. Defaults to
	// Dir/.wizbak-index.db when empty.
	IndexPath string `json:"index_path" yaml:"index_path"`
}

// BackupConfig groups all stage configurations for a backup run.
type BackupConfig struct {
	API    APIConfig    `json:"api" yaml:"api"`
	Sync   SyncConfig   `json:"sync" yaml:"sync"`
	Output OutputConfig `json:"output" yaml:"output"`
}
