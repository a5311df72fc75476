package api

import "time"

// Lookup defines a single directory lookup with the answer it produced.
type Lookup struct {
	Key    string
	Record Record
	// Status is the HTTP status the directory responded with, 0 when the
	// request never produced a response.
	Status int
	Error  error

	// FromCache is set when the record was served from a previously cached
	// entry after the synchronous re-fetch failed (fail-open).
	FromCache bool
	// FetchedAt is when the record was last confirmed against the directory.
	FetchedAt time.Time
}
