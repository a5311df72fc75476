package middleware

import (
	"net/http"
	"strings"

	"github.com/meridianhq/tenantgate/internal/config"
	"github.com/meridianhq/tenantgate/internal/httperrors"
	"github.com/meridianhq/tenantgate/internal/logging"
	"github.com/meridianhq/tenantgate/internal/resolver"
	"github.com/meridianhq/tenantgate/internal/tenant"
	"github.com/meridianhq/tenantgate/metrics"
)

// Headers propagated to the downstream application. They are stripped from
// every inbound request first, a client must never be able to inject them.
const (
	TenantSlugHeader   = "X-Tenant-Slug"
	TenantIDHeader     = "X-Tenant-ID"
	CustomDomainHeader = "X-Custom-Domain"
)

// Resolution is the gate in front of the downstream application: it decides
// per request which tenant it belongs to, propagates that decision through
// headers, a cookie and the request context, and denies requests belonging
// to no tenant.
type Resolution struct {
	resolver *resolver.Resolver

	cookieName    string
	trustedHeader string
	statusPath    string
	publicPaths   []string
}

// NewResolution builds the resolution middleware from configuration.
func NewResolution(r *resolver.Resolver, cfg *config.General) *Resolution {
	return &Resolution{
		resolver:      r,
		cookieName:    cfg.CookieName,
		trustedHeader: cfg.TrustedHeader,
		statusPath:    cfg.StatusPath,
		publicPaths:   cfg.PublicPaths,
	}
}

// Handler resolves the tenant for each request before handing it to next.
func (m *Resolution) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.statusPath != "" && r.URL.Path == m.statusPath {
			next.ServeHTTP(w, r)
			return
		}

		if m.isPublicPath(r.URL.Path) {
			// Public paths must never block on the directory and never
			// deny: resolve best-effort and pass through.
			res := m.resolver.ResolvePublic(r)
			m.stripInboundHeaders(r)
			m.propagate(w, r, res)

			next.ServeHTTP(w, tenant.ReqWithResolution(r, res))

			return
		}

		res := m.resolver.Resolve(r)
		metrics.ResolutionsTotal.WithLabelValues(res.Decision.String()).Inc()

		m.stripInboundHeaders(r)

		switch res.Decision {
		case tenant.Deny:
			logging.LogRequest(r).WithField("host", r.Host).Info("no tenant for request")
			httperrors.ServeTenantNotFound(w)

			return
		case tenant.Allow:
			m.propagate(w, r, res)
		}

		next.ServeHTTP(w, tenant.ReqWithResolution(r, res))
	})
}

func (m *Resolution) isPublicPath(path string) bool {
	for _, public := range m.publicPaths {
		if public == "" {
			continue
		}

		if strings.HasSuffix(public, "/") {
			if strings.HasPrefix(path, public) {
				return true
			}
			continue
		}

		if path == public {
			return true
		}
	}

	return false
}

// stripInboundHeaders removes the propagation headers a client may have
// forged. The trusted header is consumed by the resolver before requests
// reach this point, so it is dropped here too and never leaks downstream.
func (m *Resolution) stripInboundHeaders(r *http.Request) {
	r.Header.Del(TenantSlugHeader)
	r.Header.Del(TenantIDHeader)
	r.Header.Del(CustomDomainHeader)

	if m.trustedHeader != "" {
		r.Header.Del(m.trustedHeader)
	}
}

func (m *Resolution) propagate(w http.ResponseWriter, r *http.Request, res *tenant.Resolution) {
	if res.Slug == "" {
		return
	}

	r.Header.Set(TenantSlugHeader, res.Slug)

	if res.ID != "" {
		r.Header.Set(TenantIDHeader, res.ID)
	}

	if res.CustomDomain {
		r.Header.Set(CustomDomainHeader, "true")
	}

	if m.cookieName != "" {
		// Client-side scripts read this cookie, it stays accessible on
		// purpose and carries nothing sensitive.
		http.SetCookie(w, &http.Cookie{
			Name:     m.cookieName,
			Value:    res.Slug,
			Path:     "/",
			SameSite: http.SameSiteLaxMode,
		})
	}
}
