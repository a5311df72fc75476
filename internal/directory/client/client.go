package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	jwt "github.com/golang-jwt/jwt/v4"

	"github.com/meridianhq/tenantgate/internal/directory/api"
	"github.com/meridianhq/tenantgate/internal/httptransport"
	"github.com/meridianhq/tenantgate/metrics"
)

const (
	// apiRequestHeader carries the internal-service identification token on
	// every directory call.
	apiRequestHeader = "Gateway-Api-Request"

	tokenIssuer = "tenantgate"
)

var (
	errUnknown      = errors.New("unknown response from directory")
	errUnauthorized = errors.New("directory rejected the api token")
	errNotFound     = errors.New("not found")

	errUnknownLookupKind = errors.New("unknown lookup kind")
)

// Client is an HTTP client to access the internal tenant and custom domain
// directory APIs.
type Client struct {
	secretKey    []byte
	tenantDirURL *url.URL
	domainDirURL *url.URL
	jwtExpiry    time.Duration
	httpClient   *http.Client
}

// NewClient initializes and returns a new directory Client.
func NewClient(tenantDirURL, domainDirURL string, secretKey []byte, connectionTimeout, jwtExpiry time.Duration) (*Client, error) {
	if connectionTimeout == 0 {
		return nil, errors.New("directory client timeout cannot be 0")
	}

	if jwtExpiry == 0 {
		return nil, errors.New("directory JWT expiry cannot be 0")
	}

	tenantURL, err := url.Parse(tenantDirURL)
	if err != nil {
		return nil, fmt.Errorf("parsing tenant directory URL: %w", err)
	}

	domainURL, err := url.Parse(domainDirURL)
	if err != nil {
		return nil, fmt.Errorf("parsing domain directory URL: %w", err)
	}

	return &Client{
		secretKey:    secretKey,
		tenantDirURL: tenantURL,
		domainDirURL: domainURL,
		jwtExpiry:    jwtExpiry,
		httpClient: &http.Client{
			Timeout: connectionTimeout,
			Transport: httptransport.NewTransportWithMetrics(
				metrics.DirectoryRequestDuration,
				metrics.DirectoryRequests,
			),
		},
	}, nil
}

// NewFromConfig creates a new client from a Config provider.
func NewFromConfig(cfg Config) (*Client, error) {
	return NewClient(
		cfg.TenantDirectoryURL(),
		cfg.DomainDirectoryURL(),
		cfg.DirectoryAPISecret(),
		cfg.DirectoryClientTimeout(),
		cfg.DirectoryJWTExpiry(),
	)
}

// tenantResponse is the payload of the tenant directory by-slug endpoint.
type tenantResponse struct {
	Success bool `json:"success"`
	Data    struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"data"`
}

// domainResponse is the payload of the custom domain resolve endpoint.
type domainResponse struct {
	TenantSlug string `json:"tenant_slug"`
	TenantID   string `json:"tenant_id"`
}

// GetLookup retrieves a directory record for a composite key and wraps it
// into a Lookup. A 404 from the directory is a valid negative answer, not an
// error.
func (c *Client) GetLookup(ctx context.Context, key string) *api.Lookup {
	kind, input := api.SplitKey(key)

	switch kind {
	case api.KindSlug:
		return c.getTenant(ctx, key, input)
	case api.KindDomain:
		return c.getDomain(ctx, key, input)
	default:
		return &api.Lookup{Key: key, Error: errUnknownLookupKind}
	}
}

func (c *Client) getTenant(ctx context.Context, key, slug string) *api.Lookup {
	lookup := &api.Lookup{Key: key}

	endpoint, err := c.tenantDirURL.Parse("/internal/tenants/by-slug/" + url.PathEscape(slug))
	if err != nil {
		lookup.Error = err
		return lookup
	}

	resp, status, err := c.get(ctx, endpoint)
	lookup.Status = status

	if errors.Is(err, errNotFound) {
		// Negative result: an unknown slug is cached so repeated lookups do
		// not hammer the directory.
		return lookup
	}

	if err != nil {
		lookup.Error = err
		return lookup
	}

	defer resp.Body.Close()

	var payload tenantResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		lookup.Error = err
		return lookup
	}

	if !payload.Success {
		return lookup
	}

	lookup.Record = api.Record{
		Found:      true,
		TenantID:   payload.Data.ID,
		TenantSlug: slug,
		Status:     payload.Data.Status,
	}

	return lookup
}

func (c *Client) getDomain(ctx context.Context, key, domain string) *api.Lookup {
	lookup := &api.Lookup{Key: key}

	endpoint, err := c.domainDirURL.Parse("/internal/resolve")
	if err != nil {
		lookup.Error = err
		return lookup
	}

	params := url.Values{}
	params.Set("domain", domain)
	endpoint.RawQuery = params.Encode()

	resp, status, err := c.get(ctx, endpoint)
	lookup.Status = status

	if errors.Is(err, errNotFound) {
		return lookup
	}

	if err != nil {
		lookup.Error = err
		return lookup
	}

	defer resp.Body.Close()

	var payload domainResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		lookup.Error = err
		return lookup
	}

	lookup.Record = api.Record{
		Found:      true,
		TenantID:   payload.TenantID,
		TenantSlug: payload.TenantSlug,
	}

	return lookup
}

func (c *Client) get(ctx context.Context, endpoint *url.URL) (*http.Response, int, error) {
	req, err := c.request(ctx, endpoint)
	if err != nil {
		return nil, 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp, resp.StatusCode, nil
	case http.StatusNotFound:
		resp.Body.Close()
		return nil, resp.StatusCode, errNotFound
	case http.StatusUnauthorized:
		resp.Body.Close()
		return nil, resp.StatusCode, errUnauthorized
	default:
		resp.Body.Close()
		return nil, resp.StatusCode, errUnknown
	}
}

func (c *Client) request(ctx context.Context, endpoint *url.URL) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}

	token, err := c.token()
	if err != nil {
		return nil, err
	}
	req.Header.Set(apiRequestHeader, token)

	return req, nil
}

func (c *Client) token() (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(c.jwtExpiry)),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secretKey)
}
