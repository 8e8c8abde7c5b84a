package extract

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
)

var skipDirs = map[string]struct{}{
	"node_modules":     {},
	"bower_components": {},
	"coverage":         {},
	"__snapshots__":    {},
}

// DiscoverOptions controls which files Discover returns.
type DiscoverOptions struct {
	Extensions       []string
	Ignore           []string // extra gitignore-style patterns
	RespectGitignore bool
}

// Discover walks root and returns the sorted, slash-separated relative paths
// of files with one of the configured extensions. Hidden entries, vendored
// dependency directories and ignored paths are skipped.
func Discover(root string, opts DiscoverOptions) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, errors.FileSystemError("source directory does not exist").
			WithContext("path", root).
			Build()
	}

	matchers := make([]*ignore.GitIgnore, 0, 2)
	if opts.RespectGitignore {
		if gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
			matchers = append(matchers, gi)
		}
	}
	if len(opts.Ignore) > 0 {
		matchers = append(matchers, ignore.CompileIgnoreLines(opts.Ignore...))
	}
	ignored := func(rel string) bool {
		for _, m := range matchers {
			if m.MatchesPath(rel) {
				return true
			}
		}
		return false
	}

	var results []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped
		}
		if path == root {
			return nil
		}
		name := d.Name()
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") || ignored(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		if !slices.Contains(opts.Extensions, strings.ToLower(filepath.Ext(name))) {
			return nil
		}
		if ignored(rel) {
			return nil
		}
		results = append(results, rel)
		return nil
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "walk source directory").
			WithContext("path", root).
			Build()
	}

	slices.Sort(results)
	return results, nil
}
