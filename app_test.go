package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridianhq/tenantgate/internal/config"
	"github.com/meridianhq/tenantgate/internal/directory/api"
	"github.com/meridianhq/tenantgate/internal/directory/cache"
	"github.com/meridianhq/tenantgate/internal/middleware"
)

type fakeDirectory struct {
	mu      sync.Mutex
	records map[string]api.Record
}

func (d *fakeDirectory) GetLookup(ctx context.Context, key string) *api.Lookup {
	d.mu.Lock()
	defer d.mu.Unlock()

	if record, ok := d.records[key]; ok {
		return &api.Lookup{Key: key, Record: record, Status: 200}
	}

	return &api.Lookup{Key: key, Status: 404}
}

func testAppConfig(downstreamURL string) *config.Config {
	return &config.Config{
		General: config.General{
			PlatformDomain:  "platform.test",
			AllowedStatuses: []string{"active"},
			CookieName:      "tenant_slug",
			DownstreamURL:   downstreamURL,
		},
		Cache: config.Cache{
			FreshTTL:             5 * time.Minute,
			StaleTTL:             15 * time.Minute,
			EntryLifetime:        12 * time.Hour,
			CleanupInterval:      time.Minute,
			RetrievalTimeout:     time.Second,
			MaxRetrievalInterval: time.Millisecond,
			MaxRetrievalRetries:  1,
		},
		Log: config.Log{
			Format: "json",
		},
	}
}

func testAppHandler(t *testing.T, downstreamURL string) http.Handler {
	t.Helper()

	dir := &fakeDirectory{records: map[string]api.Record{
		api.SlugKey("acme"): {Found: true, TenantID: "t-123", TenantSlug: "acme", Status: "active"},
	}}

	cfg := testAppConfig(downstreamURL)

	a := &theApp{
		config: cfg,
		cache:  cache.NewCache(dir, &cfg.Cache),
	}

	handler, err := a.buildHandlerPipeline()
	require.NoError(t, err)

	return handler
}

func TestHandlerPipelineProxiesResolvedTenant(t *testing.T) {
	var seen http.Header
	downstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
		io.WriteString(w, "downstream ok")
	}))
	defer downstream.Close()

	handler := testAppHandler(t, downstream.URL)

	req := httptest.NewRequest("GET", "http://acme-admin.platform.test/dashboard", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	resp := rec.Result()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "downstream ok", string(body))
	require.Equal(t, "acme", seen.Get(middleware.TenantSlugHeader))
	require.Equal(t, "t-123", seen.Get(middleware.TenantIDHeader))
	require.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestHandlerPipelineDeniesUnknownTenant(t *testing.T) {
	downstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("downstream must not see denied requests")
	}))
	defer downstream.Close()

	handler := testAppHandler(t, downstream.URL)

	req := httptest.NewRequest("GET", "http://ghost-admin.platform.test/dashboard", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "Tenant not found.")
}

func TestHandlerPipelineServes502OnDownstreamFailure(t *testing.T) {
	downstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	downstream.Close()

	handler := testAppHandler(t, downstream.URL)

	req := httptest.NewRequest("GET", "http://acme-admin.platform.test/dashboard", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestAdminHandler(t *testing.T) {
	dir := &fakeDirectory{records: map[string]api.Record{}}
	cfg := testAppConfig("http://127.0.0.1:0")

	a := &theApp{
		config: cfg,
		cache:  cache.NewCache(dir, &cfg.Cache),
	}

	admin := a.adminHandler()

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{name: "healthz", method: "GET", path: "/healthz", status: http.StatusOK},
		{name: "metrics", method: "GET", path: "/metrics", status: http.StatusOK},
		{name: "cache_clear", method: "POST", path: "/cache/clear", status: http.StatusNoContent},
		{name: "cache_clear_wrong_method", method: "GET", path: "/cache/clear", status: http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "http://localhost"+tt.path, nil)
			rec := httptest.NewRecorder()
			admin.ServeHTTP(rec, req)

			require.Equal(t, tt.status, rec.Code)
		})
	}
}
