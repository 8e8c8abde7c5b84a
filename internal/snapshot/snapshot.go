// Package snapshot identifies the revision of the inputs a run was made from.
package snapshot

import (
	"log/slog"

	"github.com/go-git/go-git/v5"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/logfields"
)

// Revision describes the commit checked out in the source tree.
type Revision struct {
	Commit string
	Branch string
	Dirty  bool
}

// String renders the revision as stamped into reports: the short hash with a
// "-dirty" suffix when the worktree has uncommitted changes.
func (r Revision) String() string {
	if r.Commit == "" {
		return ""
	}
	s := r.Commit
	if len(s) > 12 {
		s = s[:12]
	}
	if r.Dirty {
		s += "-dirty"
	}
	return s
}

// ErrNotRepository is returned when dir is not inside a git repository.
var ErrNotRepository = errors.NewError(errors.CategoryNotFound, "not a git repository").Build()

// Resolve inspects the git repository containing dir.
func Resolve(dir string) (Revision, error) {
	repository, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err == git.ErrRepositoryNotExists {
		return Revision{}, ErrNotRepository
	}
	if err != nil {
		return Revision{}, errors.WrapError(err, errors.CategoryFileSystem, "failed to open repository").
			WithContext("dir", dir).
			Build()
	}

	ref, err := repository.Head()
	if err != nil {
		// A repository without commits has no HEAD yet.
		return Revision{}, errors.WrapError(err, errors.CategoryNotFound, "failed to resolve HEAD").
			WithContext("dir", dir).
			Build()
	}

	rev := Revision{Commit: ref.Hash().String()}
	if ref.Name().IsBranch() {
		rev.Branch = ref.Name().Short()
	}

	if worktree, err := repository.Worktree(); err == nil {
		if status, err := worktree.Status(); err == nil {
			rev.Dirty = !status.IsClean()
		} else {
			slog.Debug("Worktree status unavailable", logfields.Error(err))
		}
	}
	return rev, nil
}

// Stamp returns the revision string for dir, or "" when dir is not under
// version control.
func Stamp(dir string) string {
	rev, err := Resolve(dir)
	if err != nil {
		if err != ErrNotRepository {
			slog.Debug("Source revision unavailable", logfields.Error(err))
		}
		return ""
	}
	return rev.String()
}
