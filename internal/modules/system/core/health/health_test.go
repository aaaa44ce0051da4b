package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/minpic/core/internal/database"
	"github.com/minpic/core/internal/pkg/cron"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRouter(t *testing.T) (*gin.Engine, Deps, *int) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := database.OpenMemory()
	require.NoError(t, err)

	runs := 0
	sched := cron.New(zap.NewNop())
	require.NoError(t, sched.Register(cron.Job{
		Name:     "expire-files",
		Interval: time.Hour,
		Fn: func(context.Context) error {
			runs++
			return nil
		},
	}))

	d := Deps{DB: db, Sched: sched, LogDir: t.TempDir()}
	r := gin.New()
	RegisterRoutes(r.Group("/api"), d, func(c *gin.Context) { c.Next() })
	return r, d, &runs
}

func do(r http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHealthReportsDatabase(t *testing.T) {
	r, _, _ := newRouter(t)
	w := do(r, http.MethodGet, "/api/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["database"])
	assert.NotContains(t, body, "redis")
}

func TestHealthDegradedWhenDatabaseClosed(t *testing.T) {
	_, d, _ := newRouter(t)
	sqlDB, err := d.DB.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	code, body := Probe(context.Background(), d)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", body["status"])
}

func TestCronEndpoints(t *testing.T) {
	r, _, runs := newRouter(t)

	w := do(r, http.MethodGet, "/api/health/cron")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"expire-files"`)

	w = do(r, http.MethodPost, "/api/health/cron/run/expire-files")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, *runs)

	w = do(r, http.MethodPost, "/api/health/cron/run/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLogEndpoints(t *testing.T) {
	r, d, _ := newRouter(t)
	require.NoError(t, os.WriteFile(filepath.Join(d.LogDir, "stdout_1-1-24.log"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(d.LogDir, "notes.txt"), []byte("skip"), 0o644))

	w := do(r, http.MethodGet, "/api/health/log/list")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data []logItem `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, "5 B", list.Data[0].Size)

	w = do(r, http.MethodGet, "/api/health/log?filename=../stdout_1-1-24.log")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", w.Body.String())

	w = do(r, http.MethodGet, "/api/health/log")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(r, http.MethodDelete, "/api/health/log?filename=stdout_1-1-24.log")
	assert.Equal(t, http.StatusNoContent, w.Code)
	_, err := os.Stat(filepath.Join(d.LogDir, "stdout_1-1-24.log"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
