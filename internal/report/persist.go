package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
)

const (
	JSONFileName = "report.json"
	TextFileName = "report.txt"
)

// Persist writes report.json and report.txt atomically into dir.
func (r *Report) Persist(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "ensure report directory").
			WithContext("dir", dir).
			Build()
	}

	var jb bytes.Buffer
	if err := NewJSONFormatter().Format(&jb, r); err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "marshal report json").Build()
	}
	if err := writeAtomic(filepath.Join(dir, JSONFileName), jb.Bytes()); err != nil {
		return err
	}

	var tb bytes.Buffer
	if err := NewTextFormatter().Format(&tb, r); err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "format report text").Build()
	}
	return writeAtomic(filepath.Join(dir, TextFileName), tb.Bytes())
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write temp report").
			WithContext("path", tmp).
			Build()
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "atomic rename report").
			WithContext("path", path).
			Build()
	}
	return nil
}

// LoadJSON reads a previously persisted report.json. A missing file yields (nil, nil).
func LoadJSON(path string) (*Report, error) {
	// #nosec G304 -- path is derived from the configured output directory
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "read previous report").
			WithContext("path", path).
			Build()
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "decode previous report").
			WithContext("path", path).
			Build()
	}
	r.restore()
	return &r, nil
}
