package tenant

// Decision is the terminal state of resolving a single request.
type Decision int

const (
	// PassThroughUnresolved means no tenant could be determined for the
	// request. The downstream application decides what to render, e.g. a
	// tenant picker on the platform root domain.
	PassThroughUnresolved Decision = iota
	// Allow means a tenant was resolved and confirmed to exist.
	Allow
	// Deny means a tenant candidate was resolved but could not be confirmed,
	// or a custom domain had no known mapping.
	Deny
)

// String implements fmt.Stringer, used as a metrics label.
func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return "pass_through"
	}
}

// Resolution is the per-request outcome of tenant resolution.
type Resolution struct {
	// Slug is the resolved tenant slug, empty when unresolved.
	Slug string
	// ID is the tenant id confirmed by the tenant directory. Only set when
	// Validated is true.
	ID string
	// RootDomain is true when the request host is the platform root or a
	// reserved environment host.
	RootDomain bool
	// CustomDomain is true when the tenant was resolved through a registered
	// third-party domain, either by directory lookup or by the trusted
	// header injected one hop upstream.
	CustomDomain bool
	// Validated is true only when tenant existence was confirmed during this
	// request, from a fresh, stale-but-usable or fail-open cache answer.
	Validated bool

	Decision Decision
}
