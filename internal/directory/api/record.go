package api

// Record is a directory answer we store in the resolution cache. A record
// with Found set to false is a valid negative result: the directory
// authoritatively said the slug or domain does not exist.
type Record struct {
	Found      bool
	TenantID   string
	TenantSlug string
	// Status is the tenant lifecycle status reported by the tenant
	// directory. Empty for domain lookups.
	Status string
}
