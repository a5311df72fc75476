package resolver

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/meridianhq/tenantgate/internal/directory/api"
	"github.com/meridianhq/tenantgate/internal/directory/cache"
)

// strippedLabels are subdomain labels removed before the directory lookup so
// that "www.shop.example.com" and "shop.example.com" share one mapping.
var strippedLabels = []string{"www.", "admin.", "api."}

// CustomDomainResolver maps a registered third-party domain to a tenant
// through the custom domain directory, behind the shared resolution cache.
//
// Policy: fail-closed past the stale window. A domain whose cache entry
// expired is denied during a directory outage, and an unknown domain with no
// prior record is denied, never guessed. Stale-but-usable entries never reach
// the synchronous path, they are served directly by the cache.
type CustomDomainResolver struct {
	cache *cache.Cache
}

// NewCustomDomainResolver creates a resolver on top of the shared cache.
func NewCustomDomainResolver(c *cache.Cache) *CustomDomainResolver {
	return &CustomDomainResolver{cache: c}
}

// Resolve maps a custom domain to a tenant slug and id.
func (r *CustomDomainResolver) Resolve(ctx context.Context, domain string) (slug, id string, found bool) {
	base := baseDomain(domain)

	lookup := r.cache.Resolve(ctx, api.DomainKey(base))

	if lookup.Error != nil {
		logger := log.WithError(lookup.Error).WithField("domain", base)
		if lookup.FromCache {
			logger.WithField("fetched_at", lookup.FetchedAt).
				Warn("domain directory unreachable, expired mapping not served")
		} else {
			logger.Warn("domain directory unreachable, unknown domain denied")
		}

		return "", "", false
	}

	if !lookup.Record.Found {
		return "", "", false
	}

	return lookup.Record.TenantSlug, lookup.Record.TenantID, true
}

func baseDomain(domain string) string {
	for _, label := range strippedLabels {
		if strings.HasPrefix(domain, label) && len(domain) > len(label) {
			return strings.TrimPrefix(domain, label)
		}
	}

	return domain
}
