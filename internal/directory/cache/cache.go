package cache

import (
	"context"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/meridianhq/tenantgate/internal/config"
	"github.com/meridianhq/tenantgate/internal/directory/api"
	"github.com/meridianhq/tenantgate/metrics"
)

// Cache is the tiered resolution cache shared by custom domain resolution
// and tenant validation. Answers are fresh, stale-but-usable or expired,
// derived from the time they were last confirmed against a directory.
type Cache struct {
	store     Store
	retriever *Retriever
	refetch   singleflight.Group
}

// NewCache creates a new instance of Cache backed by a directory client.
func NewCache(client api.Client, cc *config.Cache) *Cache {
	retriever := NewRetriever(client, cc.RetrievalTimeout, cc.MaxRetrievalInterval, cc.MaxRetrievalRetries)

	return &Cache{
		store:     newMemStore(retriever, cc),
		retriever: retriever,
	}
}

// Resolve returns the directory answer for a composite key:
//   - fresh entries are served as-is;
//   - stale-but-usable entries are served as-is and trigger at most one
//     background refresh;
//   - expired entries force a synchronous re-fetch; when that fails, the
//     old answer is returned with FromCache set, and the caller applies its
//     own fail-open or fail-closed policy;
//   - unknown keys force a synchronous retrieval shared between concurrent
//     requests.
func (c *Cache) Resolve(ctx context.Context, key string) *api.Lookup {
	kind, _ := api.SplitKey(key)
	entry := c.store.LoadOrCreate(key)

	switch {
	case entry.IsFresh():
		metrics.ResolutionCacheRequests.WithLabelValues(kind, "fresh").Inc()
		return entry.Lookup()

	case entry.NeedsRefresh():
		metrics.ResolutionCacheRequests.WithLabelValues(kind, "stale").Inc()
		entry.Refresh(c.store)

		return entry.Lookup()

	case entry.IsExpired():
		metrics.ResolutionCacheRequests.WithLabelValues(kind, "expired").Inc()
		return c.refetchExpired(key, kind, entry)

	default:
		metrics.ResolutionCacheRequests.WithLabelValues(kind, "miss").Inc()
		lookup := entry.Retrieve(ctx)

		// Failed first retrievals are never served from cache.
		if entry.hasFailed() {
			c.store.Drop(key, entry)
		}

		return lookup
	}
}

// Clear flushes every cache entry. Administrative operation, used when a
// tenant slug is renamed or a domain mapping changes outside the TTL cycle.
func (c *Cache) Clear() {
	c.store.Clear()
}

// refetchExpired re-fetches an expired entry synchronously. Concurrent
// requests for the same key converge on a single directory call. On failure
// the previous answer is handed back with FromCache set: whether that old
// answer may still be acted upon is the caller's policy, not the cache's.
func (c *Cache) refetchExpired(key, kind string, entry *Entry) *api.Lookup {
	result, _, _ := c.refetch.Do(key, func() (interface{}, error) {
		lookup := c.retriever.Retrieve(key)
		if lookup.Error == nil {
			c.store.ReplaceOrCreate(key, resolvedEntry(key, entry.freshTTL, entry.staleTTL, c.retriever, lookup))
		}

		return lookup, nil
	})

	lookup := result.(*api.Lookup)
	if lookup.Error == nil {
		return lookup
	}

	previous := entry.Lookup()
	if previous == nil {
		return lookup
	}

	metrics.ResolutionCacheFailOpen.WithLabelValues(kind).Inc()
	log.WithError(lookup.Error).WithField("key", key).
		Warn("directory unreachable, previously cached answer available")

	stale := *previous
	stale.FromCache = true
	stale.Error = lookup.Error

	return &stale
}
