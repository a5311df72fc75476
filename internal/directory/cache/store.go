package cache

// Store defines an interface describing an abstract cache entry store.
type Store interface {
	LoadOrCreate(key string) *Entry
	ReplaceOrCreate(key string, entry *Entry) *Entry
	// Drop removes the entry for a key, but only while the stored entry is
	// still the one passed. Used to throw away entries whose first retrieval
	// failed, which are never served from cache.
	Drop(key string, entry *Entry)
	Clear()
}
