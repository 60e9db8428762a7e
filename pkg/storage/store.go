package storage

import "fmt"

// Store persists app id to capability classifications. Load returns
// the full set; a missing backing file is an empty set, not an error.
// Save rewrites the backing store wholesale.
type Store interface {
	Load() (map[uint32]bool, error)
	Save(entries map[uint32]bool) error
	Close() error
}

// Open builds the Store selected by backend: "file" (the default for
// an empty string) or "bolt". path is the backing file in both cases.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", "file":
		return NewFileStore(path), nil
	case "bolt":
		return NewBoltStore(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
