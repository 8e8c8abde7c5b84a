package config

import (
	"path/filepath"
	"runtime"
	"time"
)

const defaultUserAgent = "docsync-linkverify/1.0"

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

type sourceDefaults struct{}

func (sourceDefaults) Domain() string { return "source" }

func (sourceDefaults) ApplyDefaults(cfg *Config) error {
	if len(cfg.Source.Extensions) == 0 {
		cfg.Source.Extensions = []string{".js", ".mjs", ".cjs"}
	}
	if len(cfg.Narrative.Extensions) == 0 {
		cfg.Narrative.Extensions = []string{".mdx", ".md"}
	}
	return nil
}

type navigationDefaults struct{}

func (navigationDefaults) Domain() string { return "navigation" }

func (navigationDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Navigation.CatchAllTitle == "" {
		cfg.Navigation.CatchAllTitle = "Other"
	}
	return nil
}

type outputDefaults struct{}

func (outputDefaults) Domain() string { return "output" }

func (outputDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Output.Directory == "" {
		cfg.Output.Directory = "./build/docs"
	}
	if cfg.History.Enabled && cfg.History.Path == "" {
		cfg.History.Path = filepath.Join(cfg.Output.Directory, ".docsync-history.db")
	}
	return nil
}

type validationDefaults struct{}

func (validationDefaults) Domain() string { return "validation" }

func (validationDefaults) ApplyDefaults(cfg *Config) error {
	v := &cfg.Validation
	if v.Workers <= 0 {
		v.Workers = min(runtime.NumCPU(), 8)
	}
	if v.FileTimeout <= 0 {
		v.FileTimeout = 10 * time.Second
	}
	if v.PageTimeout <= 0 {
		v.PageTimeout = 5 * time.Second
	}
	if v.GlobalTimeout <= 0 {
		v.GlobalTimeout = 5 * time.Minute
	}

	ext := &v.External
	if ext.Concurrency <= 0 {
		ext.Concurrency = 8
	}
	if ext.RequestTimeout <= 0 {
		ext.RequestTimeout = 10 * time.Second
	}
	if ext.RateLimitDelay < 0 {
		ext.RateLimitDelay = 0
	}
	if ext.CacheTTL <= 0 {
		ext.CacheTTL = 24 * time.Hour
	}
	if ext.CacheSize <= 0 {
		ext.CacheSize = 1024
	}
	if ext.UserAgent == "" {
		ext.UserAgent = defaultUserAgent
	}
	if ext.KVBucket == "" {
		ext.KVBucket = "docsync-link-cache"
	}
	if ext.Subject == "" {
		ext.Subject = "docsync.links.broken"
	}
	return nil
}

type runtimeDefaults struct{}

func (runtimeDefaults) Domain() string { return "runtime" }

func (runtimeDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":9464"
	}
	if cfg.Publish.Retry.Backoff == "" {
		cfg.Publish.Retry.Backoff = RetryBackoffLinear
	}
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	return nil
}

// defaultAppliers run in order; later domains may depend on earlier ones.
var defaultAppliers = []DefaultApplier{
	sourceDefaults{},
	navigationDefaults{},
	outputDefaults{},
	validationDefaults{},
	runtimeDefaults{},
}

// ApplyDefaults fills in every unset field with its default.
func ApplyDefaults(cfg *Config) error {
	if cfg.Version == "" {
		cfg.Version = CurrentVersion
	}
	for _, applier := range defaultAppliers {
		if err := applier.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}
