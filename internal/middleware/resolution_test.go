package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridianhq/tenantgate/internal/config"
	"github.com/meridianhq/tenantgate/internal/directory/api"
	"github.com/meridianhq/tenantgate/internal/directory/cache"
	"github.com/meridianhq/tenantgate/internal/resolver"
	"github.com/meridianhq/tenantgate/internal/tenant"
)

type stubDirectory struct {
	mu      sync.Mutex
	calls   int
	records map[string]api.Record
}

func (d *stubDirectory) GetLookup(ctx context.Context, key string) *api.Lookup {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls++

	if record, ok := d.records[key]; ok {
		return &api.Lookup{Key: key, Record: record, Status: 200}
	}

	return &api.Lookup{Key: key, Status: 404}
}

func (d *stubDirectory) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.calls
}

func testMiddleware(t *testing.T, dir *stubDirectory) *Resolution {
	t.Helper()

	cfg := &config.Config{
		General: config.General{
			PlatformDomain:   "platform.test",
			ReservedPrefixes: []string{"dev", "staging", "prod"},
			AllowedStatuses:  []string{"active", "creating"},
			TrustedHeader:    "X-Forwarded-Tenant",
			CookieName:       "tenant",
			StatusPath:       "/-/status",
			PublicPaths:      []string{"/login", "/static/", "/healthz"},
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
	}

	return NewResolution(resolver.New(cfg, cache.NewCache(dir, &cfg.Cache)), &cfg.General)
}

type recordedRequest struct {
	header     http.Header
	resolution *tenant.Resolution
}

func recordingHandler(rec *recordedRequest) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.header = r.Header.Clone()
		rec.resolution = tenant.FromRequest(r)
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestResolutionAllowPropagates(t *testing.T) {
	dir := &stubDirectory{records: map[string]api.Record{
		api.SlugKey("acme"): {Found: true, TenantID: "t-123", TenantSlug: "acme", Status: "active"},
	}}

	rec := &recordedRequest{}
	handler := testMiddleware(t, dir).Handler(recordingHandler(rec))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "http://acme-admin.platform.test/dashboard", nil)
	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "acme", rec.header.Get(TenantSlugHeader))
	require.Equal(t, "t-123", rec.header.Get(TenantIDHeader))
	require.Empty(t, rec.header.Get(CustomDomainHeader))

	require.NotNil(t, rec.resolution)
	require.Equal(t, tenant.Allow, rec.resolution.Decision)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "tenant", cookies[0].Name)
	require.Equal(t, "acme", cookies[0].Value)
	require.Equal(t, "/", cookies[0].Path)
	require.False(t, cookies[0].HttpOnly)
}

func TestResolutionDenyServesNotFoundPage(t *testing.T) {
	dir := &stubDirectory{records: map[string]api.Record{}}

	handler := testMiddleware(t, dir).Handler(recordingHandler(&recordedRequest{}))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "http://ghost-admin.platform.test/dashboard", nil)
	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Empty(t, w.Header().Get("Location"))
	require.Contains(t, w.Body.String(), "Tenant not found.")
	require.Empty(t, w.Result().Cookies())
}

func TestResolutionPassThroughSetsNothing(t *testing.T) {
	dir := &stubDirectory{}

	rec := &recordedRequest{}
	handler := testMiddleware(t, dir).Handler(recordingHandler(rec))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "http://platform.test/", nil)
	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Empty(t, rec.header.Get(TenantSlugHeader))
	require.Empty(t, w.Result().Cookies())
	require.Zero(t, dir.count())

	require.NotNil(t, rec.resolution)
	require.Equal(t, tenant.PassThroughUnresolved, rec.resolution.Decision)
	require.True(t, rec.resolution.RootDomain)
}

func TestResolutionStripsForgedHeaders(t *testing.T) {
	dir := &stubDirectory{records: map[string]api.Record{
		api.SlugKey("acme"): {Found: true, TenantID: "t-123", TenantSlug: "acme", Status: "active"},
	}}

	rec := &recordedRequest{}
	handler := testMiddleware(t, dir).Handler(recordingHandler(rec))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "http://acme-admin.platform.test/", nil)
	r.Header.Set(TenantIDHeader, "t-forged")
	r.Header.Set(CustomDomainHeader, "true")
	handler.ServeHTTP(w, r)

	require.Equal(t, "t-123", rec.header.Get(TenantIDHeader))
	require.Empty(t, rec.header.Get(CustomDomainHeader))
}

func TestResolutionTrustedHeaderNeverLeaksDownstream(t *testing.T) {
	dir := &stubDirectory{records: map[string]api.Record{
		api.SlugKey("acme"): {Found: true, TenantID: "t-123", TenantSlug: "acme", Status: "active"},
	}}

	rec := &recordedRequest{}
	handler := testMiddleware(t, dir).Handler(recordingHandler(rec))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "http://shop.example.com/", nil)
	r.Header.Set("X-Forwarded-Tenant", "acme")
	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "acme", rec.header.Get(TenantSlugHeader))
	require.Equal(t, "true", rec.header.Get(CustomDomainHeader))
	require.Empty(t, rec.header.Get("X-Forwarded-Tenant"))
}

func TestResolutionPublicPathSkipsDirectory(t *testing.T) {
	dir := &stubDirectory{}

	rec := &recordedRequest{}
	handler := testMiddleware(t, dir).Handler(recordingHandler(rec))

	for _, path := range []string{"/login", "/static/app.css", "/healthz"} {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "http://acme-admin.platform.test"+path, nil)
		handler.ServeHTTP(w, r)

		require.Equal(t, http.StatusNoContent, w.Code, "path %q", path)
		require.Equal(t, "acme", rec.header.Get(TenantSlugHeader), "path %q", path)
	}

	// even an unknown host passes through on a public path
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "http://unregistered.example.com/login", nil)
	handler.ServeHTTP(w, r)
	require.Equal(t, http.StatusNoContent, w.Code)

	require.Zero(t, dir.count())
}

func TestResolutionStatusPathBypassed(t *testing.T) {
	dir := &stubDirectory{}

	rec := &recordedRequest{}
	handler := testMiddleware(t, dir).Handler(recordingHandler(rec))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "http://unregistered.example.com/-/status", nil)
	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Zero(t, dir.count())
	require.Nil(t, rec.resolution)
}
