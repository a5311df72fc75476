package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridianhq/tenantgate/internal/directory/api"
)

func TestRetrieveRetriesTransportErrors(t *testing.T) {
	client := &stubClient{failure: errors.New("connection refused")}
	retriever := NewRetriever(client, time.Second, time.Millisecond, 3)

	lookup := retriever.Retrieve(api.SlugKey("acme"))

	require.EqualError(t, lookup.Error, "connection refused")
	require.Equal(t, uint64(3), client.count())
}

func TestRetrieveStopsRetryingOnceTimedOut(t *testing.T) {
	client := &stubClient{failure: errors.New("connection refused")}
	retriever := NewRetriever(client, 10*time.Millisecond, 20*time.Millisecond, 100)

	lookup := retriever.Retrieve(api.SlugKey("acme"))
	require.Error(t, lookup.Error)

	attempts := client.count()
	time.Sleep(100 * time.Millisecond)

	// The fetch goroutine must not keep retrying against a dead context.
	require.LessOrEqual(t, client.count(), attempts+1)
}
