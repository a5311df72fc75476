package cache

import (
	"context"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/meridianhq/tenantgate/internal/directory/api"
	"github.com/meridianhq/tenantgate/metrics"
)

// Entry represents a cache object that can be retrieved asynchronously and
// holds a pointer to *api.Lookup once the directory answer has been fetched
// successfully.
type Entry struct {
	key       string
	fetchedAt time.Time
	freshTTL  time.Duration
	staleTTL  time.Duration
	retrieve  *sync.Once
	refresh   *sync.Once
	mux       *sync.RWMutex
	fetched   chan struct{}
	response  *api.Lookup
	retriever *Retriever
}

func newCacheEntry(key string, freshTTL, staleTTL time.Duration, retriever *Retriever) *Entry {
	return &Entry{
		key:       key,
		freshTTL:  freshTTL,
		staleTTL:  staleTTL,
		retrieve:  &sync.Once{},
		refresh:   &sync.Once{},
		mux:       &sync.RWMutex{},
		fetched:   make(chan struct{}),
		retriever: retriever,
	}
}

// IsFresh returns true if the entry holds a directory answer younger than the
// fresh TTL. Such entries are served without consulting the directory.
func (e *Entry) IsFresh() bool {
	e.mux.RLock()
	defer e.mux.RUnlock()

	return e.isResolved() && e.age() < e.freshTTL
}

// NeedsRefresh returns true if the entry holds a directory answer past the
// fresh TTL but still inside the stale window. Such entries are served
// immediately and refreshed in the background.
func (e *Entry) NeedsRefresh() bool {
	e.mux.RLock()
	defer e.mux.RUnlock()

	return e.isResolved() && e.age() >= e.freshTTL && e.age() < e.staleTTL
}

// IsExpired returns true if the entry holds a directory answer older than the
// stale window. Expired entries are never served without a synchronous
// re-fetch attempt.
func (e *Entry) IsExpired() bool {
	e.mux.RLock()
	defer e.mux.RUnlock()

	return e.isResolved() && e.age() >= e.staleTTL
}

// Lookup returns a copy of the entry's directory answer stamped with the time
// it was fetched, or nil when the entry was never resolved successfully.
func (e *Entry) Lookup() *api.Lookup {
	e.mux.RLock()
	defer e.mux.RUnlock()

	if e.response == nil {
		return nil
	}

	lookup := *e.response
	lookup.FetchedAt = e.fetchedAt

	return &lookup
}

// Retrieve performs a blocking retrieval of the directory answer. Concurrent
// callers for the same entry converge on a single directory call. The fetch
// runs detached from the request context: an aborted request does not cancel
// it, so the answer still lands in the cache for future requests.
func (e *Entry) Retrieve(ctx context.Context) *api.Lookup {
	e.retrieve.Do(func() { go e.retrieveWithClient() })

	select {
	case <-ctx.Done():
		return &api.Lookup{Key: e.key, Status: http.StatusBadGateway, Error: ctx.Err()}
	case <-e.fetched:
		return e.Lookup()
	}
}

// Refresh fires a single background re-fetch of the entry. The store is only
// updated when the directory answered; errors are logged and the stale entry
// keeps being served until it expires.
func (e *Entry) Refresh(store Store) {
	e.refresh.Do(func() {
		go func() {
			lookup := e.retriever.Retrieve(e.key)
			if lookup.Error != nil {
				metrics.ResolutionCacheRefresh.WithLabelValues("error").Inc()
				log.WithError(lookup.Error).WithField("key", e.key).
					Warn("background cache refresh failed")
				return
			}

			metrics.ResolutionCacheRefresh.WithLabelValues("success").Inc()
			store.ReplaceOrCreate(e.key, resolvedEntry(e.key, e.freshTTL, e.staleTTL, e.retriever, lookup))
		}()
	})
}

func (e *Entry) retrieveWithClient() {
	e.setResponse(e.retriever.Retrieve(e.key))
}

// hasFailed reports whether the blocking retrieval finished with an error.
// Such entries hold no servable answer and are dropped from the store.
func (e *Entry) hasFailed() bool {
	select {
	case <-e.fetched:
	default:
		return false
	}

	e.mux.RLock()
	defer e.mux.RUnlock()

	return e.response != nil && e.response.Error != nil
}

func (e *Entry) setResponse(lookup *api.Lookup) {
	e.mux.Lock()
	defer e.mux.Unlock()

	e.response = lookup
	e.fetchedAt = time.Now()
	close(e.fetched)
}

// isResolved and age must be called with the mutex held.
func (e *Entry) isResolved() bool {
	return e.response != nil && e.response.Error == nil
}

func (e *Entry) age() time.Duration {
	return time.Since(e.fetchedAt)
}

// resolvedEntry fabricates an entry that already holds a directory answer.
func resolvedEntry(key string, freshTTL, staleTTL time.Duration, retriever *Retriever, lookup *api.Lookup) *Entry {
	entry := newCacheEntry(key, freshTTL, staleTTL, retriever)
	entry.setResponse(lookup)

	return entry
}
