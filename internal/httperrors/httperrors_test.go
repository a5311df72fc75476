package httperrors

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// creates a new implementation of http.ResponseWriter that allows the
// casting of values in order to aid testing efforts.
type testResponseWriter struct {
	status  int
	content string
	http.ResponseWriter
}

func newTestResponseWriter(w http.ResponseWriter) *testResponseWriter {
	return &testResponseWriter{0, "", w}
}

func (w *testResponseWriter) Status() int {
	return w.status
}

func (w *testResponseWriter) Content() string {
	return w.content
}

func (w *testResponseWriter) Header() http.Header {
	return w.ResponseWriter.Header()
}

func (w *testResponseWriter) Write(data []byte) (int, error) {
	w.content = string(data)
	return w.ResponseWriter.Write(data)
}

func (w *testResponseWriter) WriteHeader(statusCode int) {
	w.status = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

var testingContent = content{
	http.StatusNotFound,
	"Title",
	"533",
	"Header test",
	"subheader text",
}

func TestGenerateErrorHTML(t *testing.T) {
	actual := generateErrorHTML(testingContent)
	require.Contains(t, actual, testingContent.title)
	require.Contains(t, actual, testingContent.statusString)
	require.Contains(t, actual, testingContent.header)
	require.Contains(t, actual, testingContent.subHeader)
}

func TestServeErrorPage(t *testing.T) {
	w := newTestResponseWriter(httptest.NewRecorder())
	serveErrorPage(w, testingContent)
	require.Equal(t, w.Header().Get("Content-Type"), "text/html; charset=utf-8")
	require.Equal(t, w.Header().Get("X-Content-Type-Options"), "nosniff")
	require.Equal(t, w.Status(), testingContent.status)
}

func TestServeTenantNotFound(t *testing.T) {
	w := newTestResponseWriter(httptest.NewRecorder())
	ServeTenantNotFound(w)
	require.Equal(t, w.Header().Get("Content-Type"), "text/html; charset=utf-8")
	require.Equal(t, w.Header().Get("X-Content-Type-Options"), "nosniff")
	require.Equal(t, w.Status(), http.StatusNotFound)
	require.Contains(t, w.Content(), contentTenantNotFound.title)
	require.Contains(t, w.Content(), contentTenantNotFound.header)
	require.Contains(t, w.Content(), contentTenantNotFound.subHeader)
}

func TestServe429(t *testing.T) {
	w := newTestResponseWriter(httptest.NewRecorder())
	Serve429(w)
	require.Equal(t, w.Status(), content429.status)
	require.Contains(t, w.Content(), content429.title)
	require.Contains(t, w.Content(), content429.subHeader)
}

func TestServe502WithRequest(t *testing.T) {
	w := newTestResponseWriter(httptest.NewRecorder())
	r := httptest.NewRequest("GET", "http://shop.example.com/dashboard", nil)

	Serve502WithRequest(w, r, "downstream request failed", errors.New("connection refused"))

	require.Equal(t, w.Status(), content502.status)
	require.Contains(t, w.Content(), content502.title)
	require.Contains(t, w.Content(), content502.subHeader)
}
