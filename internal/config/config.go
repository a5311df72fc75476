package config

import (
	"encoding/base64"
	"fmt"
	"io/ioutil"
	"strings"
	"time"
)

// Config stores all the config options relevant to tenantgate.
type Config struct {
	General   General
	Directory Directory
	Cache     Cache
	RateLimit RateLimit
	Log       Log
	Sentry    Sentry

	ServerShutdownTimeout time.Duration

	// These fields contain the raw strings passed for listen-http and
	// listen-proxyv2 settings, used by appmain() to create listeners.
	ListenHTTPStrings    MultiStringFlag
	ListenProxyv2Strings MultiStringFlag
}

// General groups settings that can not be categorized under other heads.
type General struct {
	PlatformDomain   string
	DevHost          string
	DevBypass        bool
	ReservedPrefixes []string
	AllowedStatuses  []string
	PublicPaths      []string

	DownstreamURL string
	StatusPath    string

	CookieName           string
	TrustedHeader        string
	TrustedHeaderRewrite bool

	MetricsAddress             string
	MaxConns                   int
	Proxied                    bool
	HTTP2                      bool
	PropagateCorrelationID     bool
	DisableCrossOriginRequests bool

	CustomHeaders []string

	ShowVersion bool
}

// Directory groups settings related to the clients used to interact with the
// tenant and custom domain directories.
type Directory struct {
	TenantServer       string
	DomainServer       string
	APISecretKey       []byte
	ClientHTTPTimeout  time.Duration
	JWTTokenExpiration time.Duration
}

// Cache configuration for the resolution cache.
type Cache struct {
	FreshTTL             time.Duration
	StaleTTL             time.Duration
	EntryLifetime        time.Duration
	CleanupInterval      time.Duration
	RetrievalTimeout     time.Duration
	MaxRetrievalInterval time.Duration
	MaxRetrievalRetries  int
}

// RateLimit groups settings for the source IP rate limiter.
type RateLimit struct {
	SourceIPLimitPerSecond float64
	SourceIPBurst          int
}

// Log groups settings related to configuring logging.
type Log struct {
	Format  string
	Verbose bool
}

// Sentry groups settings related to configuring Sentry.
type Sentry struct {
	DSN         string
	Environment string
}

// TenantDirectoryURL implements the directory client Config provider.
func (config *Config) TenantDirectoryURL() string {
	return config.Directory.TenantServer
}

// DomainDirectoryURL implements the directory client Config provider.
func (config *Config) DomainDirectoryURL() string {
	return config.Directory.DomainServer
}

// DirectoryAPISecret implements the directory client Config provider.
func (config *Config) DirectoryAPISecret() []byte {
	return config.Directory.APISecretKey
}

// DirectoryClientTimeout implements the directory client Config provider.
func (config *Config) DirectoryClientTimeout() time.Duration {
	return config.Directory.ClientHTTPTimeout
}

// DirectoryJWTExpiry implements the directory client Config provider.
func (config *Config) DirectoryJWTExpiry() time.Duration {
	return config.Directory.JWTTokenExpiration
}

func domainDirectoryFromFlags() string {
	if *domainDirectoryURL != "" {
		return *domainDirectoryURL
	}

	return *tenantDirectoryURL
}

func setAPISecretKey(secretFile string, config *Config) error {
	if secretFile == "" {
		return nil
	}

	encoded, err := ioutil.ReadFile(secretFile)
	if err != nil {
		return fmt.Errorf("reading secret file: %w", err)
	}

	decoded := make([]byte, base64.StdEncoding.DecodedLen(len(encoded)))
	secretLength, err := base64.StdEncoding.Decode(decoded, encoded)
	if err != nil {
		return fmt.Errorf("decoding directory API secret: %w", err)
	}

	if secretLength != 32 {
		return fmt.Errorf("expected 32 bytes directory API secret but got %d bytes", secretLength)
	}

	config.Directory.APISecretKey = decoded[:secretLength]
	return nil
}

func withDefault(flag *MultiStringFlag, defaults ...string) []string {
	if flag.Len() == 0 {
		return defaults
	}

	return flag.Split()
}

func loadConfig() (*Config, error) {
	config := &Config{
		General: General{
			PlatformDomain:   strings.ToLower(*platformDomain),
			DevHost:          strings.ToLower(*devHost),
			DevBypass:        *devBypass,
			ReservedPrefixes: withDefault(&reservedPrefixes, "dev", "staging", "prod"),
			AllowedStatuses:  withDefault(&allowedStatuses, "active", "creating"),
			PublicPaths:      withDefault(&publicPaths, "/login", "/static/", "/healthz", "/tenant-not-found"),

			DownstreamURL: *downstreamURL,
			StatusPath:    *statusPath,

			CookieName:           *cookieName,
			TrustedHeader:        *trustedHeader,
			TrustedHeaderRewrite: *trustedHeaderRewrite,

			MetricsAddress:             *metricsAddress,
			MaxConns:                   *maxConns,
			Proxied:                    *proxied,
			HTTP2:                      *useHTTP2,
			PropagateCorrelationID:     *propagateCorrelationID,
			DisableCrossOriginRequests: *disableCrossOriginRequests,

			CustomHeaders: header.Split(),

			ShowVersion: *showVersion,
		},
		Directory: Directory{
			TenantServer:       *tenantDirectoryURL,
			DomainServer:       domainDirectoryFromFlags(),
			ClientHTTPTimeout:  *directoryHTTPTimeout,
			JWTTokenExpiration: *directoryJWTExpiry,
		},
		Cache: Cache{
			FreshTTL:             *cacheFreshTTL,
			StaleTTL:             *cacheStaleTTL,
			EntryLifetime:        *cacheEntryLifetime,
			CleanupInterval:      *cacheCleanupInterval,
			RetrievalTimeout:     *retrievalTimeout,
			MaxRetrievalInterval: *retrievalInterval,
			MaxRetrievalRetries:  *retrievalRetries,
		},
		RateLimit: RateLimit{
			SourceIPLimitPerSecond: *rateLimitSourceIP,
			SourceIPBurst:          *rateLimitSourceIPBurst,
		},
		Log: Log{
			Format:  *logFormat,
			Verbose: *logVerbose,
		},
		Sentry: Sentry{
			DSN:         *sentryDSN,
			Environment: *sentryEnvironment,
		},

		ServerShutdownTimeout: *serverShutdownTimeout,

		ListenHTTPStrings:    listenHTTP,
		ListenProxyv2Strings: listenProxyv2,
	}

	if err := setAPISecretKey(*apiSecretKey, config); err != nil {
		return nil, err
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadConfig parses flags and the environment and returns the validated
// configuration. An error here is fatal: the caller must refuse to start.
func LoadConfig() (*Config, error) {
	initFlags()

	return loadConfig()
}
