package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// FileStore implements Store as a single JSON document mapping app id
// strings to booleans. Writes go through a temp file and rename so a
// crash never leaves a torn document behind.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed store at path. The file is not
// touched until the first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the document. A missing file yields an empty map.
// Entries with unparseable keys are dropped.
func (s *FileStore) Load() (map[uint32]bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[uint32]bool{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read capability file: %w", err)
	}

	var raw map[string]bool
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse capability file: %w", err)
	}

	entries := make(map[uint32]bool, len(raw))
	for key, capable := range raw {
		id, err := strconv.ParseUint(key, 10, 32)
		if err != nil {
			continue
		}
		entries[uint32(id)] = capable
	}
	return entries, nil
}

// Save rewrites the document with the given entries.
func (s *FileStore) Save(entries map[uint32]bool) error {
	raw := make(map[string]bool, len(entries))
	for id, capable := range entries {
		raw[strconv.FormatUint(uint64(id), 10)] = capable
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode capability file: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create capability dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write capability file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace capability file: %w", err)
	}
	return nil
}

// Close is a no-op for the file backend.
func (s *FileStore) Close() error { return nil }
