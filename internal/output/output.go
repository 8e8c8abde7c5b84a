// Package output writes the page tree, the synchronized manifest and the
// report into the output directory.
package output

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/ir"
	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/nav"
	"git.home.luguber.info/inful/docsync/internal/report"
)

const (
	PagesDir         = "pages"
	ManifestFileName = "navigation.yaml"
)

// Writer owns one output directory.
type Writer struct {
	dir   string
	clean bool
}

// NewWriter returns a writer for dir. With clean set the page tree is
// replaced wholesale so pages that were not regenerated disappear.
func NewWriter(dir string, clean bool) *Writer {
	return &Writer{dir: dir, clean: clean}
}

func (w *Writer) Dir() string      { return w.dir }
func (w *Writer) PagesDir() string { return filepath.Join(w.dir, PagesDir) }

// PageFile is the file a page is written to, relative to the pages directory.
func PageFile(p ir.Page) (string, error) {
	rel := filepath.FromSlash(p.Path) + ".mdx"
	if p.Path == "" || filepath.IsAbs(rel) || strings.HasPrefix(filepath.Clean(rel), "..") {
		return "", errors.ValidationError("page path escapes the output directory").
			WithContext("page", p.Path).
			Build()
	}
	return rel, nil
}

// WritePages writes every page. In clean mode the tree is built in a sibling
// staging directory and promoted with renames.
func (w *Writer) WritePages(pages []ir.Page) error {
	target := w.PagesDir()
	if !w.clean {
		return writeTree(target, pages)
	}

	stage := target + "_stage"
	if err := os.RemoveAll(stage); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "clear staging directory").
			WithContext("path", stage).
			Build()
	}
	if err := writeTree(stage, pages); err != nil {
		w.abort(stage)
		return err
	}
	return promote(stage, target)
}

func writeTree(root string, pages []ir.Page) error {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create pages directory").
			WithContext("path", root).
			Build()
	}
	for _, p := range pages {
		rel, err := PageFile(p)
		if err != nil {
			return err
		}
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "create page directory").
				WithContext("path", path).
				Build()
		}
		if err := os.WriteFile(path, p.Content, 0o600); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "write page").
				WithContext("path", path).
				Build()
		}
	}
	slog.Debug("Wrote page tree", slog.String("dir", root), logfields.Count(len(pages)))
	return nil
}

// promote moves the current tree aside, renames stage into place and drops
// the previous tree.
func promote(stage, target string) error {
	prev := target + ".prev"
	if err := os.RemoveAll(prev); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "remove previous backup").
			WithContext("path", prev).
			Build()
	}
	if _, err := os.Stat(target); err == nil {
		if err := os.Rename(target, prev); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "backup existing pages").
				WithContext("path", target).
				Build()
		}
	}
	if err := os.Rename(stage, target); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "promote staging").
			WithContext("path", stage).
			Build()
	}
	if err := os.RemoveAll(prev); err != nil {
		slog.Warn("Failed to remove previous pages", slog.String("path", prev), logfields.Error(err))
	}
	return nil
}

func (w *Writer) abort(stage string) {
	if err := os.RemoveAll(stage); err != nil {
		slog.Warn("Failed to remove staging directory after abort", slog.String("staging", stage), logfields.Error(err))
	}
}

// WriteManifest writes the synchronized navigation manifest.
func (w *Writer) WriteManifest(m *nav.Manifest) error {
	data, err := m.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create output directory").
			WithContext("path", w.dir).
			Build()
	}
	path := filepath.Join(w.dir, ManifestFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write navigation manifest").
			WithContext("path", tmp).
			Build()
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "atomic rename navigation manifest").
			WithContext("path", path).
			Build()
	}
	return nil
}

// WriteReport persists report.json and report.txt.
func (w *Writer) WriteReport(r *report.Report) error {
	return r.Persist(w.dir)
}

// PreviousReport loads the report of the last run written here, if any.
func (w *Writer) PreviousReport() (*report.Report, error) {
	return report.LoadJSON(filepath.Join(w.dir, report.JSONFileName))
}
