package config

import (
	"errors"
	"net/url"

	"github.com/hashicorp/go-multierror"
)

var (
	errPlatformDomainRequired = errors.New("platform-domain must be defined")
	errDownstreamURLRequired  = errors.New("downstream-url must be defined")
	errDownstreamURLScheme    = errors.New("downstream-url scheme must be either http:// or https://")
	errDirectoryURLRequired   = errors.New("tenant-directory-url must be defined")
	errAPISecretRequired      = errors.New("api-secret-key must be defined when directories are used")
	errTrustedHeaderRewrite   = errors.New("trusted-header requires trusted-header-rewritten: the header is only safe when upstream infrastructure overwrites it for every externally-originated request")
	errCacheTTLOrder          = errors.New("cache-fresh-ttl must be shorter than cache-stale-ttl, which must be shorter than cache-entry-lifetime")
	errDevBypassInRelease     = errors.New("dev-bypass is hard-disabled in release builds")
)

func validateConfig(config *Config) error {
	var result *multierror.Error

	if err := validateDevBypass(config); err != nil {
		// Everything else is moot when the bypass is refused or enabled.
		return err
	}

	if config.General.DevBypass {
		// The bypass skips resolution, not the proxy: the reverse proxy
		// still needs a usable downstream target.
		return validateDownstreamURL(config.General.DownstreamURL)
	}

	if config.General.PlatformDomain == "" {
		result = multierror.Append(result, errPlatformDomainRequired)
	}

	if err := validateDownstreamURL(config.General.DownstreamURL); err != nil {
		result = multierror.Append(result, err)
	}

	if config.Directory.TenantServer == "" {
		result = multierror.Append(result, errDirectoryURLRequired)
	}

	if len(config.Directory.APISecretKey) == 0 {
		result = multierror.Append(result, errAPISecretRequired)
	}

	if config.General.TrustedHeader != "" && !config.General.TrustedHeaderRewrite {
		result = multierror.Append(result, errTrustedHeaderRewrite)
	}

	if config.Cache.FreshTTL >= config.Cache.StaleTTL ||
		config.Cache.StaleTTL >= config.Cache.EntryLifetime {
		result = multierror.Append(result, errCacheTTLOrder)
	}

	return result.ErrorOrNil()
}

func validateDevBypass(config *Config) error {
	if config.General.DevBypass && !devBypassAllowed {
		return errDevBypassInRelease
	}

	return nil
}

func validateDownstreamURL(rawURL string) error {
	if rawURL == "" {
		return errDownstreamURLRequired
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}

	// url.Parse ensures that the Scheme attribute is always lower case.
	if u.Scheme != "http" && u.Scheme != "https" {
		return errDownstreamURLScheme
	}

	return nil
}
