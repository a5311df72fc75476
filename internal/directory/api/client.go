package api

import "context"

// Client represents an interface we use to retrieve records from the tenant
// and custom domain directories.
type Client interface {
	// GetLookup retrieves the record behind a composite key ("slug:acme",
	// "domain:shop.example.com") and wraps it into a Lookup.
	GetLookup(ctx context.Context, key string) *Lookup
}

// Resolver retrieves directory records in a more generic way: it can be a
// concrete directory client or a cache sitting in front of one.
type Resolver interface {
	Resolve(ctx context.Context, key string) *Lookup
}
