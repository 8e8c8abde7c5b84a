package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
)

// CurrentVersion is the only configuration format version understood by Load.
const CurrentVersion = "1.0"

// Config represents the docsync configuration file.
type Config struct {
	Version    string           `yaml:"version" validate:"eq=1.0"`
	Source     SourceConfig     `yaml:"source"`
	Narrative  NarrativeConfig  `yaml:"narrative"`
	Assets     AssetsConfig     `yaml:"assets"`
	Navigation NavigationConfig `yaml:"navigation"`
	Output     OutputConfig     `yaml:"output"`
	Validation ValidationConfig `yaml:"validation"`
	History    HistoryConfig    `yaml:"history"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Watch      WatchConfig      `yaml:"watch"`
	Publish    PublishConfig    `yaml:"publish"`
}

// SourceConfig describes where doc-comment bearing source files live.
type SourceConfig struct {
	Directory        string   `yaml:"directory" validate:"required"`
	Extensions       []string `yaml:"extensions" validate:"min=1,dive,startswith=."`
	Ignore           []string `yaml:"ignore,omitempty"`
	RespectGitignore *bool    `yaml:"respect_gitignore,omitempty"`
}

// NarrativeConfig describes the hand-written MDX/Markdown pages.
type NarrativeConfig struct {
	Directory  string   `yaml:"directory,omitempty"`
	Extensions []string `yaml:"extensions" validate:"min=1,dive,startswith=."`
}

// AssetsConfig points at static files referenced from pages (images, downloads).
type AssetsConfig struct {
	Directory string `yaml:"directory,omitempty"`
}

// NavigationConfig controls manifest synchronization.
type NavigationConfig struct {
	Manifest      string `yaml:"manifest,omitempty"`
	AutoPatch     bool   `yaml:"auto_patch"`
	CatchAllTitle string `yaml:"catch_all_title" validate:"required"`
}

// OutputConfig represents output configuration.
type OutputConfig struct {
	Directory string `yaml:"directory" validate:"required"`
	Clean     bool   `yaml:"clean"` // remove stale pages before writing
}

// ValidationConfig bounds the parallel stages and the optional reachability pass.
type ValidationConfig struct {
	Workers       int            `yaml:"workers" validate:"min=1,max=256"`
	FileTimeout   time.Duration  `yaml:"file_timeout" validate:"gt=0"`
	PageTimeout   time.Duration  `yaml:"page_timeout" validate:"gt=0"`
	GlobalTimeout time.Duration  `yaml:"global_timeout" validate:"gt=0"`
	External      ExternalConfig `yaml:"external"`
}

// ExternalConfig configures live external link verification.
type ExternalConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Concurrency    int           `yaml:"concurrency" validate:"min=1,max=64"`
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gt=0"`
	RateLimitDelay time.Duration `yaml:"rate_limit_delay" validate:"gte=0"`
	CacheTTL       time.Duration `yaml:"cache_ttl" validate:"gt=0"`
	CacheSize      int           `yaml:"cache_size" validate:"min=1"`
	UserAgent      string        `yaml:"user_agent" validate:"required"`
	SkipHosts      []string      `yaml:"skip_hosts,omitempty"`
	NATSURL        string        `yaml:"nats_url,omitempty" validate:"omitempty,url"`
	KVBucket       string        `yaml:"kv_bucket" validate:"required"`
	Subject        string        `yaml:"subject" validate:"required"`
}

// HistoryConfig configures the run history database used for diffs.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required_if=Enabled true"`
}

// MetricsConfig configures the Prometheus endpoint served in watch mode.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address" validate:"required_if=Enabled true"`
	Path    string `yaml:"path" validate:"startswith=/"`
}

// WatchConfig configures re-runs triggered by file changes or a fixed interval.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" validate:"gt=0"`
	Interval time.Duration `yaml:"interval,omitempty" validate:"gte=0"`
}

// PublishConfig configures upload of a passing run to S3-compatible storage.
type PublishConfig struct {
	Enabled   bool        `yaml:"enabled"`
	Endpoint  string      `yaml:"endpoint" validate:"required_if=Enabled true"`
	Bucket    string      `yaml:"bucket" validate:"required_if=Enabled true"`
	Prefix    string      `yaml:"prefix,omitempty"`
	Region    string      `yaml:"region,omitempty"`
	AccessKey string      `yaml:"access_key,omitempty"`
	SecretKey string      `yaml:"secret_key,omitempty"`
	UseSSL    bool        `yaml:"use_ssl"`
	Retry     RetryConfig `yaml:"retry"`
}

// RetryBackoffMode selects how retry delays grow.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

// RetryConfig configures retries of transient storage failures.
type RetryConfig struct {
	Backoff    RetryBackoffMode `yaml:"backoff,omitempty" validate:"omitempty,oneof=fixed linear exponential"`
	Initial    time.Duration    `yaml:"initial,omitempty" validate:"gte=0"`
	Max        time.Duration    `yaml:"max,omitempty" validate:"gte=0"`
	MaxRetries int              `yaml:"max_retries" validate:"gte=0,lte=10"`
}

// GitignoreEnabled reports whether .gitignore files are honoured (default true).
func (s SourceConfig) GitignoreEnabled() bool {
	return s.RespectGitignore == nil || *s.RespectGitignore
}

// Load loads a configuration file, expanding ${ENV} references, applying
// defaults and validating the result.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, errors.ConfigError("configuration file not found").
			WithContext("path", configPath).
			Build()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read config file").
			WithContext("path", configPath).
			Build()
	}

	return Parse(data)
}

// Parse decodes, defaults and validates raw configuration bytes.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to unmarshal config").Fatal().Build()
	}

	if err := ApplyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).
			Build()
	}

	example := Config{
		Version: CurrentVersion,
		Source: SourceConfig{
			Directory:  "./src",
			Extensions: []string{".js", ".mjs"},
			Ignore:     []string{"**/*.test.js", "dist/"},
		},
		Narrative:  NarrativeConfig{Directory: "./docs", Extensions: []string{".mdx", ".md"}},
		Assets:     AssetsConfig{Directory: "./static"},
		Navigation: NavigationConfig{Manifest: "./navigation.yaml", CatchAllTitle: "Other"},
		Output:     OutputConfig{Directory: "./build/docs", Clean: true},
		Validation: ValidationConfig{
			Workers:       4,
			FileTimeout:   10 * time.Second,
			PageTimeout:   5 * time.Second,
			GlobalTimeout: 5 * time.Minute,
			External: ExternalConfig{
				Enabled:        false,
				Concurrency:    8,
				RequestTimeout: 10 * time.Second,
				RateLimitDelay: 100 * time.Millisecond,
				CacheTTL:       24 * time.Hour,
				CacheSize:      1024,
				UserAgent:      defaultUserAgent,
				NATSURL:        "${DOCSYNC_NATS_URL}",
				KVBucket:       "docsync-link-cache",
				Subject:        "docsync.links.broken",
			},
		},
		History: HistoryConfig{Enabled: true, Path: "./.docsync/history.db"},
		Metrics: MetricsConfig{Enabled: false, Address: ":9464", Path: "/metrics"},
		Watch:   WatchConfig{Debounce: 500 * time.Millisecond},
		Publish: PublishConfig{
			Enabled:   false,
			Endpoint:  "s3.amazonaws.com",
			Bucket:    "my-docs",
			Prefix:    "latest",
			AccessKey: "${DOCSYNC_S3_ACCESS_KEY}",
			SecretKey: "${DOCSYNC_S3_SECRET_KEY}",
			UseSSL:    true,
			Retry:     RetryConfig{Backoff: RetryBackoffExponential, Initial: time.Second, Max: 30 * time.Second, MaxRetries: 3},
		},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to marshal config").Build()
	}

	// #nosec G306 -- example config holds only placeholders
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write config file").
			WithContext("path", configPath).
			Build()
	}
	return nil
}
