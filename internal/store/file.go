package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"
)

// FileVersion is bumped when the on-disk layout changes.
const FileVersion = 1

// ErrVersionMismatch is returned when a store file has an unknown layout.
var ErrVersionMismatch = errors.New("store file version mismatch (delete it to start over)")

// fileData is the on-disk shape of a File store.
type fileData struct {
	Version int               `json:"version"`
	Values  map[string]string `json:"values"`
}

// File is a Store kept as one JSON file. Reads are served from memory;
// every write rewrites the file.
type File struct {
	path   string
	mu     sync.RWMutex
	values map[string]string
}

// NewFile opens (or creates) the store file at path.
// The parent directory is created if it doesn't exist.
func NewFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	f := &File{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store file: %w", err)
	}

	var fd fileData
	if err := json.Unmarshal(data, &fd); err != nil {
		return nil, fmt.Errorf("parse store file: %w", err)
	}
	if fd.Version != FileVersion {
		return nil, ErrVersionMismatch
	}
	if fd.Values != nil {
		f.values = fd.Values
	}
	return f, nil
}

// Path returns the backing file.
func (f *File) Path() string {
	return f.path
}

func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.values[key]
	return v, ok, nil
}

// Set updates the value and writes the file through a rename, so readers
// never see a half-written file.
func (f *File) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := maps.Clone(f.values)
	next[key] = value

	data, err := json.MarshalIndent(fileData{Version: FileVersion, Values: next}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write store file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}

	f.values = next
	return nil
}

func (f *File) Close() error { return nil }
