// Package publish uploads the output of a passing run to S3-compatible
// storage.
package publish

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"git.home.luguber.info/inful/docsync/internal/config"
	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/retry"
)

type objectStore interface {
	ensureBucket(ctx context.Context) error
	put(ctx context.Context, key string, content []byte, contentType string) error
	list(ctx context.Context, prefix string) ([]string, error)
	remove(ctx context.Context, key string) error
}

// Publisher mirrors an output directory under a key prefix.
type Publisher struct {
	store  objectStore
	prefix string
	retry  retry.Policy
}

// New creates a publisher from cfg.
func New(cfg config.PublishConfig) (*Publisher, error) {
	store, err := newS3Store(cfg)
	if err != nil {
		return nil, err
	}
	return &Publisher{store: store, prefix: cleanPrefix(cfg.Prefix), retry: retry.FromConfig(cfg.Retry)}, nil
}

func cleanPrefix(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

// Stats summarizes one publication.
type Stats struct {
	Uploaded int
	Removed  int
}

// Publish uploads every file below dir and removes objects under the prefix
// that no longer exist locally, so the bucket mirrors the page tree.
func (p *Publisher) Publish(ctx context.Context, dir, runID string) (Stats, error) {
	var stats Stats
	if err := p.store.ensureBucket(ctx); err != nil {
		return stats, errors.WrapError(err, errors.CategoryStorage, "ensure bucket").Retryable().Build()
	}

	files, err := collect(dir)
	if err != nil {
		return stats, err
	}

	keep := make(map[string]struct{}, len(files))
	for _, rel := range files {
		if ctx.Err() != nil {
			return stats, errors.WrapError(ctx.Err(), errors.CategoryStorage, "publish canceled").Build()
		}
		// #nosec G304 -- rel comes from walking dir
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			return stats, errors.WrapError(err, errors.CategoryFileSystem, "read output file").
				WithContext("path", rel).
				Build()
		}
		key := p.prefix + rel
		err = p.retry.Do(ctx, func() error {
			if err := p.store.put(ctx, key, data, contentType(rel)); err != nil {
				return errors.WrapError(err, errors.CategoryStorage, "upload object").
					WithContext("key", key).
					Retryable().
					Build()
			}
			return nil
		}, func(attempt int, err error) {
			slog.Warn("Retrying upload", slog.String("key", key), slog.Int("attempt", attempt), logfields.Error(err))
		})
		if err != nil {
			return stats, err
		}
		keep[key] = struct{}{}
		stats.Uploaded++
	}

	existing, err := p.store.list(ctx, p.prefix)
	if err != nil {
		return stats, errors.WrapError(err, errors.CategoryStorage, "list objects").Retryable().Build()
	}
	slices.Sort(existing)
	for _, key := range existing {
		if _, ok := keep[key]; ok {
			continue
		}
		if err := p.store.remove(ctx, key); err != nil {
			return stats, errors.WrapError(err, errors.CategoryStorage, "remove stale object").
				WithContext("key", key).
				Build()
		}
		stats.Removed++
	}

	slog.Info("Published output", logfields.RunID(runID),
		slog.String("prefix", p.prefix), slog.Int("uploaded", stats.Uploaded), slog.Int("removed", stats.Removed))
	return stats, nil
}

// collect lists the files below dir as sorted slash paths. Staging
// leftovers and temp files are skipped.
func collect(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if p != dir && (strings.HasSuffix(name, "_stage") || strings.HasSuffix(name, ".prev")) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(name, ".tmp") || strings.HasSuffix(name, ".db") {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "walk output directory").
			WithContext("dir", dir).
			Build()
	}
	slices.Sort(files)
	return files, nil
}

func contentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".mdx", ".md":
		return "text/markdown; charset=utf-8"
	case ".yaml", ".yml":
		return "application/yaml"
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain; charset=utf-8"
	}
	return "application/octet-stream"
}
