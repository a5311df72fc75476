package cache

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/meridianhq/tenantgate/internal/config"
)

// memstore holds cache entries in a swept in-memory store. The entry lifetime
// is deliberately much longer than the stale window: old entries back the
// validator's fail-open answers during directory outages, and the periodic
// sweep keeps memory bounded in long-running deployments.
type memstore struct {
	store     *gocache.Cache
	mux       *sync.RWMutex
	retriever *Retriever
	freshTTL  time.Duration
	staleTTL  time.Duration
}

func newMemStore(retriever *Retriever, cc *config.Cache) Store {
	return &memstore{
		store:     gocache.New(cc.EntryLifetime, cc.CleanupInterval),
		mux:       &sync.RWMutex{},
		retriever: retriever,
		freshTTL:  cc.FreshTTL,
		staleTTL:  cc.StaleTTL,
	}
}

// LoadOrCreate writes or retrieves a cache entry in a thread-safe way,
// trying to make this read-preferring RW locking.
func (m *memstore) LoadOrCreate(key string) *Entry {
	m.mux.RLock()
	entry, exists := m.store.Get(key)
	m.mux.RUnlock()

	if exists {
		return entry.(*Entry)
	}

	m.mux.Lock()
	defer m.mux.Unlock()

	if entry, exists = m.store.Get(key); exists {
		return entry.(*Entry)
	}

	newEntry := newCacheEntry(key, m.freshTTL, m.staleTTL, m.retriever)
	m.store.SetDefault(key, newEntry)

	return newEntry
}

func (m *memstore) ReplaceOrCreate(key string, entry *Entry) *Entry {
	m.mux.Lock()
	defer m.mux.Unlock()

	m.store.Delete(key)
	m.store.SetDefault(key, entry)

	return entry
}

func (m *memstore) Drop(key string, entry *Entry) {
	m.mux.Lock()
	defer m.mux.Unlock()

	if current, exists := m.store.Get(key); exists && current.(*Entry) == entry {
		m.store.Delete(key)
	}
}

func (m *memstore) Clear() {
	m.mux.Lock()
	defer m.mux.Unlock()

	m.store.Flush()
}
