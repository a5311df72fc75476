package resolver

import (
	"strings"

	"github.com/meridianhq/tenantgate/internal/host"
)

const (
	adminSuffix     = "-admin."
	localhostSuffix = ".localhost"
)

// HostnameParser extracts a tenant slug from a request host using the
// platform's subdomain pattern. Pure, no side effects.
type HostnameParser struct {
	platformDomain string
	devHost        string
	reserved       map[string]struct{}
}

// NewHostnameParser builds a parser for a platform base domain. Reserved
// prefixes name platform environments ("dev", "staging", "prod") whose
// -admin hosts are the platform root, not tenants.
func NewHostnameParser(platformDomain, devHost string, reservedPrefixes []string) *HostnameParser {
	reserved := make(map[string]struct{}, len(reservedPrefixes))
	for _, prefix := range reservedPrefixes {
		reserved[strings.ToLower(prefix)] = struct{}{}
	}

	return &HostnameParser{
		platformDomain: strings.ToLower(platformDomain),
		devHost:        strings.ToLower(devHost),
		reserved:       reserved,
	}
}

// SlugFromHost returns the tenant slug embedded in a raw host header, or ""
// when the host carries none. The host may include a port.
func (p *HostnameParser) SlugFromHost(rawHost string) string {
	h := host.FromString(rawHost)

	if suffix := adminSuffix + p.platformDomain; p.platformDomain != "" && strings.HasSuffix(h, suffix) {
		candidate := strings.TrimSuffix(h, suffix)

		if candidate == "" || strings.Contains(candidate, ".") {
			return ""
		}

		if _, ok := p.reserved[candidate]; ok {
			return ""
		}

		return candidate
	}

	// {slug}.localhost is a local development convenience.
	if strings.HasSuffix(h, localhostSuffix) {
		candidate := strings.TrimSuffix(h, localhostSuffix)

		if candidate != "" && !strings.Contains(candidate, ".") {
			return candidate
		}
	}

	return ""
}

// IsPlatformHost reports whether a raw host belongs to the platform itself:
// the base domain, any of its subdomains, the bare development host or a
// localhost name. Such hosts are never custom domains.
func (p *HostnameParser) IsPlatformHost(rawHost string) bool {
	h := host.FromString(rawHost)

	if h == p.devHost || h == "localhost" || strings.HasSuffix(h, localhostSuffix) {
		return true
	}

	if p.platformDomain == "" {
		return false
	}

	return h == p.platformDomain || strings.HasSuffix(h, "."+p.platformDomain)
}
