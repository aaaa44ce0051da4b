package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/minpic/core/internal/config"
	"github.com/minpic/core/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestApp(t *testing.T, token string) *App {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	cfg := &config.AppConfig{
		Port:               3000,
		Env:                "production",
		AllowedOrigins:     []string{"*.example.com"},
		Auth:               config.AuthConfig{Token: token},
		Paths:              config.PathsConfig{Logs: t.TempDir()},
		ExpirySweepMinutes: 60,
	}
	a, err := build(zap.NewNop(), cfg, db, nil)
	require.NoError(t, err)
	t.Cleanup(a.Shutdown)
	return a
}

func serve(a *App, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)
	return w
}

func TestAppWiresRoutes(t *testing.T) {
	a := newTestApp(t, "")
	assert.Equal(t, ":3000", a.Addr())

	cases := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/api/ping", http.StatusOK},
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/api/health", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/files", http.StatusOK},
		{http.MethodGet, "/api/configs/storage", http.StatusOK},
		{http.MethodGet, "/api/configs/shortlink", http.StatusNotFound},
		{http.MethodGet, "/api/shortlinks", http.StatusOK},
		{http.MethodGet, "/api/stats", http.StatusOK},
		{http.MethodGet, "/api/files/sync/a", http.StatusNotFound},
		{http.MethodGet, "/api/files/missing", http.StatusNotFound},
		{http.MethodGet, "/nope", http.StatusNotFound},
		{http.MethodPatch, "/api/ping", http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		w := serve(a, tc.method, tc.path, nil)
		assert.Equal(t, tc.want, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestAppRegistersExpiryJob(t *testing.T) {
	a := newTestApp(t, "")
	items := a.sched.List()
	require.Len(t, items, 1)
	assert.Equal(t, "expire-files", items[0].Name)
}

func TestAppGuardsAPI(t *testing.T) {
	a := newTestApp(t, "secret")

	assert.Equal(t, http.StatusUnauthorized, serve(a, http.MethodGet, "/api/stats", nil).Code)
	assert.Equal(t, http.StatusOK, serve(a, http.MethodGet, "/api/stats", http.Header{
		"Authorization": {"Bearer secret"},
	}).Code)
	assert.Equal(t, http.StatusOK, serve(a, http.MethodGet, "/api/ping", nil).Code)
	assert.Equal(t, http.StatusOK, serve(a, http.MethodGet, "/healthz", nil).Code)
	// Public media routes are not guarded.
	assert.Equal(t, http.StatusNotFound, serve(a, http.MethodGet, "/api/files/missing/download", nil).Code)
}

func TestAppCORS(t *testing.T) {
	a := newTestApp(t, "")

	w := serve(a, http.MethodGet, "/api/ping", http.Header{"Origin": {"https://img.example.com"}})
	assert.Equal(t, "https://img.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(a, http.MethodGet, "/api/ping", http.Header{"Origin": {"https://evil.test"}})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestOriginMatcher(t *testing.T) {
	m := newOriginMatcher([]string{"Example.com", " *.example.com ", "localhost:*", ""})

	assert.True(t, m.allow("https://example.com"))
	assert.True(t, m.allow("https://img.EXAMPLE.com"))
	assert.False(t, m.allow("https://badexample.com"))
	assert.False(t, m.allow("https://example.org"))
	assert.True(t, m.allow("http://localhost:5173"))
	assert.True(t, m.allow("http://localhost"))
	assert.False(t, m.allow("http://localhost.evil:80"))
	assert.Equal(t, "a.example.com:8080", extractOriginHost("https://a.example.com:8080"))
	assert.Equal(t, "garbage", extractOriginHost("garbage"))
}
