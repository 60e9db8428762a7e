package cache

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/ArtyProf/steam-card-idler/pkg/log"
	"github.com/ArtyProf/steam-card-idler/pkg/storage"
)

// Cache holds the permanent app id to capability classifications.
// Entries are loaded lazily on first use and only ever gain concrete
// values; nothing can reset an entry to unknown.
type Cache struct {
	store  storage.Store
	logger zerolog.Logger

	mu      sync.Mutex
	entries map[uint32]bool
	loaded  bool
}

// New creates a cache backed by store. The store is not read until
// the first lookup.
func New(store storage.Store) *Cache {
	return &Cache{
		store:  store,
		logger: log.WithComponent("cache"),
	}
}

// Has returns the classification for appID and whether one exists.
func (c *Cache) Has(appID uint32) (capable bool, known bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoadedLocked()
	capable, known = c.entries[appID]
	return capable, known
}

// Set records a classification for appID.
func (c *Cache) Set(appID uint32, capable bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoadedLocked()
	c.entries[appID] = capable
}

// Persist writes the current entries through the backing store.
func (c *Cache) Persist() error {
	c.mu.Lock()
	c.ensureLoadedLocked()
	snapshot := make(map[uint32]bool, len(c.entries))
	for id, capable := range c.entries {
		snapshot[id] = capable
	}
	c.mu.Unlock()

	return c.store.Save(snapshot)
}

// Len returns the number of classified apps.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoadedLocked()
	return len(c.entries)
}

// Snapshot returns a copy of every classification.
func (c *Cache) Snapshot() map[uint32]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoadedLocked()
	out := make(map[uint32]bool, len(c.entries))
	for id, capable := range c.entries {
		out[id] = capable
	}
	return out
}

// ensureLoadedLocked reads the store once. A read failure logs and
// starts empty; the daemon can always re-earn classifications.
func (c *Cache) ensureLoadedLocked() {
	if c.loaded {
		return
	}
	c.loaded = true
	entries, err := c.store.Load()
	if err != nil {
		c.logger.Warn().Err(err).Msg("capability store unreadable, starting empty")
		c.entries = map[uint32]bool{}
		return
	}
	c.entries = entries
	if c.entries == nil {
		c.entries = map[uint32]bool{}
	}
}
