package resolver

import (
	"context"
	"net/http"

	"github.com/meridianhq/tenantgate/internal/config"
	"github.com/meridianhq/tenantgate/internal/directory/cache"
	"github.com/meridianhq/tenantgate/internal/host"
	"github.com/meridianhq/tenantgate/internal/tenant"
)

// Resolver composes the resolution strategies into the per-request decision:
// resolve a candidate slug, confirm it against the tenant directory, decide
// allow / deny / pass-through.
type Resolver struct {
	parser  *HostnameParser
	header  *TrustedHeaderExtractor
	domains *CustomDomainResolver
	tenants *Validator
}

// New wires the strategies from configuration around the shared cache.
func New(cfg *config.Config, c *cache.Cache) *Resolver {
	return &Resolver{
		parser:  NewHostnameParser(cfg.General.PlatformDomain, cfg.General.DevHost, cfg.General.ReservedPrefixes),
		header:  NewTrustedHeaderExtractor(cfg.General.TrustedHeader),
		domains: NewCustomDomainResolver(c),
		tenants: NewValidator(c, cfg.General.AllowedStatuses),
	}
}

// Resolve determines the tenant owning the request.
//
// The subdomain pattern wins first. Hosts belonging to the platform itself
// pass through unresolved (the downstream application renders its root, e.g.
// a tenant picker). Everything else is a foreign host: the custom domain
// directory is asked first, then the trusted header injected one hop
// upstream; a foreign host that resolves nowhere is denied.
func (r *Resolver) Resolve(req *http.Request) *tenant.Resolution {
	h := host.FromRequest(req)
	res := &tenant.Resolution{}

	if slug := r.parser.SlugFromHost(h); slug != "" {
		res.Slug = slug
		return r.validate(req.Context(), res)
	}

	if r.parser.IsPlatformHost(h) {
		res.RootDomain = true
		res.Decision = tenant.PassThroughUnresolved

		return res
	}

	if slug, _, found := r.domains.Resolve(req.Context(), h); found {
		// The mapping's tenant id is not trusted as-is, the slug still gets
		// confirmed against the tenant directory like any other.
		res.Slug = slug
		res.CustomDomain = true

		return r.validate(req.Context(), res)
	}

	if slug := r.header.SlugFromRequest(req); slug != "" {
		res.Slug = slug
		res.CustomDomain = true

		return r.validate(req.Context(), res)
	}

	res.Decision = tenant.Deny

	return res
}

// ResolvePublic runs only the non-blocking strategies for best-effort slug
// propagation on public paths. It never consults a directory and never
// denies.
func (r *Resolver) ResolvePublic(req *http.Request) *tenant.Resolution {
	h := host.FromRequest(req)
	res := &tenant.Resolution{Decision: tenant.PassThroughUnresolved}

	if slug := r.parser.SlugFromHost(h); slug != "" {
		res.Slug = slug
		return res
	}

	if r.parser.IsPlatformHost(h) {
		res.RootDomain = true
		return res
	}

	if slug := r.header.SlugFromRequest(req); slug != "" {
		res.Slug = slug
		res.CustomDomain = true
	}

	return res
}

func (r *Resolver) validate(ctx context.Context, res *tenant.Resolution) *tenant.Resolution {
	id, ok := r.tenants.Exists(ctx, res.Slug)
	if !ok {
		res.Decision = tenant.Deny
		return res
	}

	res.ID = id
	res.Validated = true
	res.Decision = tenant.Allow

	return res
}
