package config

import (
	"time"

	"github.com/namsral/flag"
)

var (
	platformDomain = flag.String("platform-domain", "", "The base domain the platform serves tenant subdomains under, e.g. 'platform.example.com'")
	devHost        = flag.String("dev-host", "localhost", "The bare host used for local development, never treated as a tenant")
	devBypass      = flag.Bool("dev-bypass", false, "Fully bypass tenant resolution for local development. Refused in release builds")

	downstreamURL = flag.String("downstream-url", "", "URL of the downstream application requests are proxied to, e.g. 'http://127.0.0.1:3000'")
	statusPath    = flag.String("status-path", "", "The URL path for a status page, e.g., /@status")

	cookieName           = flag.String("tenant-cookie-name", "tenant", "Name of the client-readable cookie carrying the resolved tenant slug")
	trustedHeader        = flag.String("trusted-header", "", "Header carrying a tenant slug injected by trusted upstream infrastructure, e.g. 'X-Tenant-Slug'. Empty disables header resolution")
	trustedHeaderRewrite = flag.Bool("trusted-header-rewritten", false, "Assert that the network layer always overwrites the trusted header for externally-originated requests. Required to enable -trusted-header")

	tenantDirectoryURL = flag.String("tenant-directory-url", "", "Base URL of the internal tenant directory, e.g. 'https://tenants.internal'")
	domainDirectoryURL = flag.String("domain-directory-url", "", "Base URL of the internal custom domain directory (defaults to value of tenant-directory-url)")
	apiSecretKey       = flag.String("api-secret-key", "", "File with the base64-encoded secret key used to authenticate with the directories")

	directoryHTTPTimeout = flag.Duration("directory-http-timeout", 1500*time.Millisecond, "Directory API HTTP client connection timeout")
	directoryJWTExpiry   = flag.Duration("directory-jwt-expiry", 30*time.Second, "Directory API token expiry time")

	cacheFreshTTL        = flag.Duration("cache-fresh-ttl", 5*time.Minute, "How long a cached directory answer is served without consulting the directory")
	cacheStaleTTL        = flag.Duration("cache-stale-ttl", 15*time.Minute, "How long a cached directory answer is still served while being refreshed in the background")
	cacheEntryLifetime   = flag.Duration("cache-entry-lifetime", 12*time.Hour, "How long cache entries are retained before the periodic sweep removes them")
	cacheCleanupInterval = flag.Duration("cache-cleanup-interval", time.Minute, "The interval at which swept-out entries are removed from the cache")
	retrievalTimeout     = flag.Duration("directory-retrieval-timeout", 1500*time.Millisecond, "The maximum time to wait for a directory answer per lookup, retries included")
	retrievalInterval    = flag.Duration("directory-retrieval-interval", 200*time.Millisecond, "The interval to wait before retrying a failed directory lookup")
	retrievalRetries     = flag.Int("directory-retrieval-retries", 3, "The maximum number of times a directory lookup is attempted")

	rateLimitSourceIP      = flag.Float64("rate-limit-source-ip", 0.0, "Rate limit HTTP requests per second from a single IP, 0 means disabled")
	rateLimitSourceIPBurst = flag.Int("rate-limit-source-ip-burst", 100, "Rate limit HTTP requests from a single IP, maximum burst allowed per second")

	metricsAddress         = flag.String("metrics-address", "", "The address to listen on for metrics and admin requests")
	maxConns               = flag.Int("max-conns", 0, "Limit on the number of concurrent connections to the listeners, 0 for no limit")
	proxied                = flag.Bool("proxied", false, "Trust X-Forwarded-* headers set by a proxy in front of tenantgate")
	useHTTP2               = flag.Bool("use-http2", true, "Enable HTTP2 support")
	propagateCorrelationID = flag.Bool("propagate-correlation-id", true, "Reuse existing Correlation-ID from the incoming request header `X-Request-ID` if present")

	disableCrossOriginRequests = flag.Bool("disable-cross-origin-requests", false, "Disable cross-origin requests")

	logFormat  = flag.String("log-format", "json", "The log output format: 'text' or 'json'")
	logVerbose = flag.Bool("log-verbose", false, "Verbose logging")

	sentryDSN         = flag.String("sentry-dsn", "", "The address for sending sentry crash reporting to")
	sentryEnvironment = flag.String("sentry-environment", "", "The environment for sentry crash reporting")

	serverShutdownTimeout = flag.Duration("server-shutdown-timeout", 30*time.Second, "Server shutdown timeout")

	showVersion = flag.Bool("version", false, "Show version")

	// See initFlags()
	listenHTTP    = MultiStringFlag{separator: ","}
	listenProxyv2 = MultiStringFlag{separator: ","}

	reservedPrefixes = MultiStringFlag{separator: ","}
	allowedStatuses  = MultiStringFlag{separator: ","}
	publicPaths      = MultiStringFlag{separator: ","}

	header = MultiStringFlag{separator: ";;"}
)

// initFlags will be called from LoadConfig
func initFlags() {
	flag.Var(&listenHTTP, "listen-http", "The address(es) to listen on for HTTP requests")
	flag.Var(&listenProxyv2, "listen-proxyv2", "The address(es) to listen on for HTTP PROXYv2 requests (https://www.haproxy.org/download/1.8/doc/proxy-protocol.txt)")
	flag.Var(&reservedPrefixes, "reserved-prefixes", "Subdomain prefixes reserved for platform environments, never treated as tenants (default: dev,staging,prod)")
	flag.Var(&allowedStatuses, "tenant-statuses", "Tenant lifecycle statuses treated as existing (default: active,creating)")
	flag.Var(&publicPaths, "public-paths", "URL path prefixes exempt from tenant validation (default: /login,/static/,/healthz,/tenant-not-found)")
	flag.Var(&header, "header", "The additional http header(s) that should be sent to the client")

	// read from -config=/path/to/tenantgate-config
	flag.String(flag.DefaultConfigFlagname, "", "path to config file")

	flag.Parse()
}
