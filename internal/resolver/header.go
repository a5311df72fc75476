package resolver

import (
	"net/http"
	"strings"
)

// TrustedHeaderExtractor reads the tenant slug from a header that trusted
// upstream infrastructure guarantees to overwrite for externally-originated
// requests. When that guarantee cannot be made the extractor stays disabled:
// the config layer refuses a header name without the rewrite assertion.
type TrustedHeaderExtractor struct {
	header string
}

// NewTrustedHeaderExtractor creates an extractor for the given header name.
// An empty name disables the strategy.
func NewTrustedHeaderExtractor(header string) *TrustedHeaderExtractor {
	return &TrustedHeaderExtractor{header: header}
}

// Enabled reports whether header resolution is configured.
func (e *TrustedHeaderExtractor) Enabled() bool {
	return e.header != ""
}

// SlugFromRequest returns the slug carried by the trusted header, or "".
func (e *TrustedHeaderExtractor) SlugFromRequest(r *http.Request) string {
	if !e.Enabled() {
		return ""
	}

	return strings.ToLower(strings.TrimSpace(r.Header.Get(e.header)))
}
