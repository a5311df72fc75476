package ratelimiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	now          = "2026-03-02T15:00:00Z"
	validTime, _ = time.Parse(time.RFC3339, now)
)

func mockNow() time.Time {
	return validTime
}

func TestSourceIPAllowed(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		sourceIPLimit     float64
		sourceIPBurstSize int
		reqNum            int
	}{
		"one_request_per_second": {
			sourceIPLimit:     1,
			sourceIPBurstSize: 1,
			reqNum:            2,
		},
		"one_request_per_second_but_big_bucket": {
			sourceIPLimit:     1,
			sourceIPBurstSize: 10,
			reqNum:            11,
		},
		"three_req_per_second_bucket_size_one": {
			sourceIPLimit:     3,
			sourceIPBurstSize: 1, // max burst 1 means 1 at a time
			reqNum:            3,
		},
		"10_requests_per_second": {
			sourceIPLimit:     10,
			sourceIPBurstSize: 10,
			reqNum:            11,
		},
	}

	for tn, tc := range tcs {
		t.Run(tn, func(t *testing.T) {
			rl := New(
				WithNow(mockNow),
				WithSourceIPLimitPerSecond(tc.sourceIPLimit),
				WithSourceIPBurstSize(tc.sourceIPBurstSize),
			)

			for i := 0; i < tc.reqNum; i++ {
				got := rl.SourceIPAllowed("172.16.123.1")
				if i < tc.sourceIPBurstSize {
					require.Truef(t, got, "expected true for request no. %d", i+1)
				} else {
					// requests fail after reaching the burst size because
					// mockNow always returns the same time
					require.Falsef(t, got, "expected false for request no. %d", i+1)
				}
			}
		})
	}
}

func TestSourceIPLimiterKeepsSourcesApart(t *testing.T) {
	rl := New(
		WithNow(mockNow),
		WithSourceIPLimitPerSecond(1),
		WithSourceIPBurstSize(1),
	)

	require.True(t, rl.SourceIPAllowed("192.168.1.1"))
	require.False(t, rl.SourceIPAllowed("192.168.1.1"))

	// a different source has its own bucket
	require.True(t, rl.SourceIPAllowed("192.168.1.2"))
}
