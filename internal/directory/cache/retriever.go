package cache

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/meridianhq/tenantgate/internal/directory/api"
)

var errRetrievalTimedOut = errors.New("directory retrieval timed out")

// Retriever performs directory calls with a bounded total timeout and
// bounded retries for transport errors.
type Retriever struct {
	client               api.Client
	retrievalTimeout     time.Duration
	maxRetrievalInterval time.Duration
	maxRetrievalRetries  int
}

// NewRetriever creates a Retriever with a directory client.
func NewRetriever(client api.Client, retrievalTimeout, maxRetrievalInterval time.Duration, maxRetrievalRetries int) *Retriever {
	return &Retriever{
		client:               client,
		retrievalTimeout:     retrievalTimeout,
		maxRetrievalInterval: maxRetrievalInterval,
		maxRetrievalRetries:  maxRetrievalRetries,
	}
}

// Retrieve fetches a directory answer with timeout and backoff. It runs on
// its own context: inbound request cancellation never aborts a retrieval
// half-way, a completed answer is still worth caching.
func (r *Retriever) Retrieve(key string) (lookup *api.Lookup) {
	ctx, cancel := context.WithTimeout(context.Background(), r.retrievalTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		log.WithField("key", key).Debug("directory retrieval timed out")
		lookup = &api.Lookup{Key: key, Error: errRetrievalTimedOut}
	case lookup = <-r.fetchWithBackoff(ctx, key):
	}

	return lookup
}

func (r *Retriever) fetchWithBackoff(ctx context.Context, key string) <-chan *api.Lookup {
	// Buffered so the fetch goroutine never blocks when the timeout wins the
	// select in Retrieve.
	response := make(chan *api.Lookup, 1)

	go func() {
		var lookup *api.Lookup

	retries:
		for i := 1; i <= r.maxRetrievalRetries; i++ {
			lookup = r.client.GetLookup(ctx, key)

			// A negative answer (404) carries no error and is not retried.
			if lookup.Error == nil || i == r.maxRetrievalRetries {
				break
			}

			select {
			case <-ctx.Done():
				// The deadline fired, nobody is waiting for another attempt.
				break retries
			case <-time.After(r.maxRetrievalInterval):
			}
		}

		response <- lookup
		close(response)
	}()

	return response
}
