// Run artifact storage.
//
// Information Hiding:
// - Artifact file naming (<dir>/<id>.json) and report naming
// - JSON encoding (indented, non-ASCII and HTML characters unescaped)
// - Atomic replacement via temp file + rename

package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ReportFile is the aggregate report written next to the artifacts.
const ReportFile = "_report_all.json"

// RunStore persists one JSON artifact per question in a directory.
type RunStore struct {
	dir string
}

// NewRunStore creates dir if needed and returns a store rooted there.
func NewRunStore(dir string) (*RunStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &RunStore{dir: dir}, nil
}

// Dir returns the directory the store writes to.
func (s *RunStore) Dir() string {
	return s.dir
}

var idReplacer = strings.NewReplacer("/", "_", "\\", "_")

// Path returns the artifact path for id.
func (s *RunStore) Path(id string) string {
	return filepath.Join(s.dir, idReplacer.Replace(id)+".json")
}

// Exists reports whether an artifact for id is present.
func (s *RunStore) Exists(id string) bool {
	_, err := os.Stat(s.Path(id))
	return err == nil
}

// Load returns the stored artifact bytes unchanged.
func (s *RunStore) Load(id string) (json.RawMessage, error) {
	data, err := os.ReadFile(s.Path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", id, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("artifact %s is not valid JSON", id)
	}
	return data, nil
}

// Save encodes record and writes it as the artifact for id.
// It returns the bytes written.
func (s *RunStore) Save(id string, record any) (json.RawMessage, error) {
	data, err := Encode(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode artifact %s: %w", id, err)
	}
	if err := writeAtomic(s.Path(id), data); err != nil {
		return nil, err
	}
	return data, nil
}

// WriteReport writes records, already sorted, as the aggregate report.
func (s *RunStore) WriteReport(records []json.RawMessage) error {
	if records == nil {
		records = []json.RawMessage{}
	}
	data, err := Encode(records)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return writeAtomic(filepath.Join(s.dir, ReportFile), data)
}

// IDs lists the ids that have an artifact, sorted lexically.
func (s *RunStore) IDs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, "_") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Encode renders v as 4-space indented JSON without escaping <, > and &.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}
