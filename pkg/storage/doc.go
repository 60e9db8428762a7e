/*
Package storage persists the app capability classifications.

The storage package implements the Store interface twice: as a plain
JSON file and as a BoltDB database. Both carry the same data, a map
from app id to a boolean saying whether the app can still yield card
drops for anyone. The classification never changes once made, which
keeps the contract small: load everything, save everything, close.

# Architecture

	┌────────────────── STORAGE ──────────────────┐
	│                                              │
	│   cache.Cache                                │
	│       │ Load() / Save(entries)               │
	│       ▼                                      │
	│   Store interface                            │
	│       │                                      │
	│   ┌───┴────────────┐                         │
	│   ▼                ▼                         │
	│   FileStore        BoltStore                 │
	│   JSON document    capabilities bucket       │
	│   temp + rename    single Update tx          │
	│                                              │
	└──────────────────────────────────────────────┘

# File Backend

The default backend. The document is human-readable on purpose, so an
operator can inspect or prune it with a text editor:

	{
	  "10": false,
	  "440": true,
	  "570": true
	}

Load treats a missing file as an empty set. Save writes a temp file
next to the target and renames it into place, so a crash mid-write
leaves either the old document or the new one, never a torn one.

# Bolt Backend

Selected with backend "bolt". Entries live in a single capabilities
bucket keyed by the decimal app id, one JSON boolean per value. Save
upserts every entry in one transaction. Since classifications are
never unset, upserting is indistinguishable from a full rewrite.

# Usage

	store, err := storage.Open("file", "card-capability.json")
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Load()
	if err != nil {
		return err
	}
	entries[440] = true
	if err := store.Save(entries); err != nil {
		return err
	}

# See Also

  - pkg/cache: the only consumer, adds in-memory caching and probing
*/
package storage
