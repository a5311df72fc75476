package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"

	"github.com/meridianhq/tenantgate/internal/directory/api"
)

var testSecret = []byte("super-secret-signing-key")

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, server.URL, testSecret, time.Second, 30*time.Second)
	require.NoError(t, err)

	return client
}

func validateToken(t *testing.T, tokenString string) {
	t.Helper()

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return testSecret, nil
	})

	require.NoError(t, err)
	require.True(t, token.Valid)
}

func TestNewValidBaseURL(t *testing.T) {
	_, err := NewClient("https://tenants.internal", "https://domains.internal", testSecret, time.Second, time.Second)
	require.NoError(t, err)
}

func TestNewInvalidConfiguration(t *testing.T) {
	tests := []struct {
		name              string
		tenantDirURL      string
		domainDirURL      string
		connectionTimeout time.Duration
		jwtExpiry         time.Duration
	}{
		{
			name:              "no_timeout",
			tenantDirURL:      "https://tenants.internal",
			domainDirURL:      "https://domains.internal",
			connectionTimeout: 0,
			jwtExpiry:         time.Second,
		},
		{
			name:              "no_jwt_expiry",
			tenantDirURL:      "https://tenants.internal",
			domainDirURL:      "https://domains.internal",
			connectionTimeout: time.Second,
			jwtExpiry:         0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.tenantDirURL, tt.domainDirURL, testSecret, tt.connectionTimeout, tt.jwtExpiry)
			require.Error(t, err)
		})
	}
}

func TestGetLookupTenant(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		validateToken(t, r.Header.Get("Gateway-Api-Request"))
		require.Equal(t, "/internal/tenants/by-slug/acme", r.URL.Path)

		w.Write([]byte(`{"success":true,"data":{"id":"t-123","status":"active"}}`))
	})

	lookup := client.GetLookup(context.Background(), api.SlugKey("acme"))

	require.NoError(t, lookup.Error)
	require.Equal(t, http.StatusOK, lookup.Status)
	require.Equal(t, api.Record{Found: true, TenantID: "t-123", TenantSlug: "acme", Status: "active"}, lookup.Record)
}

func TestGetLookupTenantNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	lookup := client.GetLookup(context.Background(), api.SlugKey("ghost"))

	require.NoError(t, lookup.Error, "a 404 is a valid negative result")
	require.Equal(t, http.StatusNotFound, lookup.Status)
	require.False(t, lookup.Record.Found)
}

func TestGetLookupDomain(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		validateToken(t, r.Header.Get("Gateway-Api-Request"))
		require.Equal(t, "/internal/resolve", r.URL.Path)
		require.Equal(t, "shop.example.com", r.URL.Query().Get("domain"))

		w.Write([]byte(`{"tenant_slug":"shopname","tenant_id":"t-9"}`))
	})

	lookup := client.GetLookup(context.Background(), api.DomainKey("shop.example.com"))

	require.NoError(t, lookup.Error)
	require.Equal(t, api.Record{Found: true, TenantID: "t-9", TenantSlug: "shopname"}, lookup.Record)
}

func TestGetLookupServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	lookup := client.GetLookup(context.Background(), api.SlugKey("acme"))

	require.Error(t, lookup.Error)
	require.Equal(t, http.StatusInternalServerError, lookup.Status)
	require.False(t, lookup.Record.Found)
}

func TestGetLookupUnknownKind(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for an unknown lookup kind")
	})

	lookup := client.GetLookup(context.Background(), "bogus:thing")
	require.Error(t, lookup.Error)
}

func TestGetLookupConnectionRefused(t *testing.T) {
	client, err := NewClient("http://127.0.0.1:0", "http://127.0.0.1:0", testSecret, 100*time.Millisecond, time.Second)
	require.NoError(t, err)

	lookup := client.GetLookup(context.Background(), api.SlugKey("acme"))
	require.Error(t, lookup.Error)
	require.Equal(t, 0, lookup.Status)
}
