package api

import "strings"

// Lookup kinds used as cache key namespaces. The separator guarantees that
// "slug:x" and "domain:x" never collide.
const (
	KindSlug   = "slug"
	KindDomain = "domain"
)

// SlugKey builds the cache key for a tenant existence lookup.
func SlugKey(slug string) string {
	return KindSlug + ":" + slug
}

// DomainKey builds the cache key for a custom domain lookup.
func DomainKey(domain string) string {
	return KindDomain + ":" + domain
}

// SplitKey returns the lookup kind and input of a composite cache key.
func SplitKey(key string) (kind, input string) {
	parts := strings.SplitN(key, ":", 2)
	if len(parts) != 2 {
		return "", key
	}

	return parts[0], parts[1]
}
