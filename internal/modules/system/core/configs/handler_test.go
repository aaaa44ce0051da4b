package configs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/minpic/core/internal/models"
	"github.com/minpic/core/internal/modules/shortlink/shortlinktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProber struct {
	err  error
	seen *models.StorageConfig
}

func (p *stubProber) Probe(ctx context.Context, cfg *models.StorageConfig) error {
	p.seen = cfg
	return p.err
}

func newTestRouter(t *testing.T, prober Prober) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, _ := newTestService(t)
	r := gin.New()
	NewHandler(svc, prober, shortlinktest.New().Factory()).RegisterRoutes(r.Group("/api"), func(c *gin.Context) { c.Next() })
	return r
}

func doJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStorageEndpoints(t *testing.T) {
	r := newTestRouter(t, &stubProber{})

	w := doJSON(r, http.MethodPost, "/api/configs/storage", gin.H{"activeId": "a"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/api/configs/storage", gin.H{
		"configs":  []gin.H{{"id": "a", "name": "A", "endpoint": "a.example.com"}},
		"activeId": "nope",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"ok":0`)

	w = doJSON(r, http.MethodPost, "/api/configs/storage", gin.H{
		"configs":  []gin.H{{"id": "a", "name": "A", "endpoint": "a.example.com"}},
		"activeId": "a",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/api/configs/storage", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var state StorageState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, "a", state.ActiveID)
	require.Len(t, state.Configs, 1)
	assert.Equal(t, "minpic", state.Configs[0].Bucket)
}

func TestShortlinkEndpoints(t *testing.T) {
	r := newTestRouter(t, &stubProber{})

	w := doJSON(r, http.MethodGet, "/api/configs/shortlink", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodPost, "/api/configs/shortlink", gin.H{"enabled": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/api/configs/shortlink", gin.H{"enabled": true, "apiUrl": "https://s.test", "apiKey": "k"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/api/configs/shortlink", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"autoGenerate":true`)
}

func TestConnectionTest(t *testing.T) {
	prober := &stubProber{}
	r := newTestRouter(t, prober)

	w := doJSON(r, http.MethodPost, "/api/configs/test", gin.H{"type": "minio", "endpoint": "s3.local", "bucket": "x"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
	require.NotNil(t, prober.seen)
	assert.Equal(t, 9000, prober.seen.Port)
	assert.False(t, prober.seen.UseSSL)

	prober.err = errors.New("connection refused")
	w = doJSON(r, http.MethodPost, "/api/configs/test", gin.H{"type": "minio", "endpoint": "s3.local"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)

	w = doJSON(r, http.MethodPost, "/api/configs/test", gin.H{"type": "shortlink", "apiUrl": "https://s.test", "apiKey": "k"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	w = doJSON(r, http.MethodPost, "/api/configs/test", gin.H{"type": "ftp"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
