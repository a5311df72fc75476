package client

import "time"

// Config is the configuration provider for a client capable of communicating
// with the tenant and custom domain directories.
type Config interface {
	TenantDirectoryURL() string
	DomainDirectoryURL() string
	DirectoryAPISecret() []byte
	DirectoryClientTimeout() time.Duration
	DirectoryJWTExpiry() time.Duration
}
