package resolver

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/meridianhq/tenantgate/internal/directory/api"
	"github.com/meridianhq/tenantgate/internal/directory/cache"
)

// Validator confirms a tenant slug maps to an existing, usable tenant
// through the tenant directory, behind the shared resolution cache.
//
// Policy: fail-open to the last cached answer of any age. Granting access to
// an arbitrary subdomain under wildcard DNS must never happen, so a slug that
// was never validated is denied when the directory is unreachable; one that
// was is kept working through an outage on its last known verdict.
type Validator struct {
	cache   *cache.Cache
	allowed map[string]struct{}
}

// NewValidator creates a validator. allowedStatuses is the lifecycle status
// allow list; records outside it ("failed", "inactive", a merely reserved
// slug) are treated as non-existent even when the directory has them.
func NewValidator(c *cache.Cache, allowedStatuses []string) *Validator {
	allowed := make(map[string]struct{}, len(allowedStatuses))
	for _, status := range allowedStatuses {
		allowed[strings.ToLower(status)] = struct{}{}
	}

	return &Validator{cache: c, allowed: allowed}
}

// Exists reports whether the slug belongs to a real, servable tenant and
// returns its id.
func (v *Validator) Exists(ctx context.Context, slug string) (id string, ok bool) {
	lookup := v.cache.Resolve(ctx, api.SlugKey(slug))

	if lookup.Error != nil {
		if !lookup.FromCache {
			log.WithError(lookup.Error).WithField("slug", slug).
				Warn("tenant directory unreachable, unvalidated slug denied")

			return "", false
		}

		log.WithError(lookup.Error).WithFields(log.Fields{
			"slug":       slug,
			"fetched_at": lookup.FetchedAt,
		}).Warn("tenant directory unreachable, serving last cached verdict")
	}

	record := lookup.Record
	if !record.Found {
		return "", false
	}

	if _, allowed := v.allowed[strings.ToLower(record.Status)]; !allowed {
		return "", false
	}

	return record.TenantID, true
}
