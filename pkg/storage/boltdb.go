package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	bolt "go.etcd.io/bbolt"
)

var bucketCapabilities = []byte("capabilities")

// BoltStore implements Store using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store at path
func NewBoltStore(path string) (*BoltStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create database dir: %w", err)
		}
	}

	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketCapabilities); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketCapabilities, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Load reads every classification from the capabilities bucket.
// Entries with unparseable keys or values are dropped.
func (s *BoltStore) Load() (map[uint32]bool, error) {
	entries := map[uint32]bool{}
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCapabilities)
		return b.ForEach(func(k, v []byte) error {
			id, err := strconv.ParseUint(string(k), 10, 32)
			if err != nil {
				return nil
			}
			var capable bool
			if err := json.Unmarshal(v, &capable); err != nil {
				return nil
			}
			entries[uint32(id)] = capable
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Save upserts every entry in a single transaction. Classifications
// are never unset, so upserting is equivalent to a wholesale rewrite.
func (s *BoltStore) Save(entries map[uint32]bool) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCapabilities)
		for id, capable := range entries {
			data, err := json.Marshal(capable)
			if err != nil {
				return err
			}
			key := []byte(strconv.FormatUint(uint64(id), 10))
			if err := b.Put(key, data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}
