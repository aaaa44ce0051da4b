package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/minpic/core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildObjectKeyMonthArchive(t *testing.T) {
	now := time.Date(2024, 5, 9, 13, 4, 5, 0, time.UTC)
	cfg := &models.StorageConfig{BaseDir: "up", ArchiveStrategy: models.ArchiveMonth}

	key := BuildObjectKey(cfg, "a b!.png", now)

	assert.Equal(t, fmt.Sprintf("up/2024/05/%d-a_b_.png", now.UnixMilli()), key)
}

func TestBuildObjectKeyStrategies(t *testing.T) {
	now := time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)
	ms := now.UnixMilli()
	cases := []struct {
		cfg  models.StorageConfig
		want string
	}{
		{models.StorageConfig{}, fmt.Sprintf("%d-x.jpg", ms)},
		{models.StorageConfig{ArchiveStrategy: models.ArchiveNone, BaseDir: "/media/"}, fmt.Sprintf("media/%d-x.jpg", ms)},
		{models.StorageConfig{ArchiveStrategy: models.ArchiveYear}, fmt.Sprintf("2023/%d-x.jpg", ms)},
		{models.StorageConfig{ArchiveStrategy: models.ArchiveDay, BaseDir: "d"}, fmt.Sprintf("d/2023/12/01/%d-x.jpg", ms)},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, BuildObjectKey(&tc.cfg, "x.jpg", now))
	}
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a_b_.png", SanitizeFilename("a b!.png"))
	assert.Equal(t, "___.mp4", SanitizeFilename("视频/.mp4"))
	assert.Equal(t, "Keep-Me.1.gif", SanitizeFilename("Keep-Me.1.gif"))
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/media/up/2024/a%20b.png",
		PublicURL("https://cdn.example.com/", "media", "up/2024/a b.png"))
}

// fakeS3 is a path-style S3 endpoint covering the calls the store makes.
type fakeS3 struct {
	mu      sync.Mutex
	bucket  string
	exists  bool
	objects map[string][]byte
	created int
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/")
	bucket, key, _ := strings.Cut(path, "/")
	if bucket != f.bucket {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch {
	case key == "" && r.Method == http.MethodHead:
		if !f.exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case key == "" && r.Method == http.MethodPut:
		f.exists = true
		f.created++
		w.WriteHeader(http.StatusOK)
	case key == "" && r.Method == http.MethodGet:
		w.Header().Set("Content-Type", "application/xml")
		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
		fmt.Fprintf(&b, "<Name>%s</Name><KeyCount>%d</KeyCount><MaxKeys>1000</MaxKeys><IsTruncated>false</IsTruncated>", f.bucket, len(f.objects))
		for k, v := range f.objects {
			fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size></Contents>", k, len(v))
		}
		b.WriteString(`<Contents><Key>folder/</Key><Size>0</Size></Contents></ListBucketResult>`)
		_, _ = io.WriteString(w, b.String())
	case r.Method == http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[key] = data
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet:
		data, ok := f.objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", fmt.Sprint(len(data)))
		_, _ = w.Write(data)
	case r.Method == http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3StoreAgainstFakeEndpoint(t *testing.T) {
	fake := &fakeS3{bucket: "media", objects: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	conn := NewS3Connector(zap.NewNop())
	conn.HTTPClient = srv.Client()
	conn.Now = func() time.Time { return now }

	cfg := &models.StorageConfig{
		ID: "primary", Endpoint: srv.URL, Bucket: "media", AccessKey: "ak", SecretKey: "sk",
		BaseDir: "up", ArchiveStrategy: models.ArchiveMonth,
	}
	ctx := context.Background()

	require.Error(t, conn.Probe(ctx, cfg), "probe must not provision")
	assert.Equal(t, 0, fake.created)

	store, err := conn.Connect(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, fake.created)
	require.NoError(t, conn.Probe(ctx, cfg))

	key, err := store.Upload(ctx, []byte("png"), "a b.png", "image/png")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("up/2024/01/%d-a_b.png", now.UnixMilli()), key)

	data, err := store.Download(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)

	objects, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, ObjectInfo{Key: key, Size: 3}, objects[0])

	u, err := store.URL(ctx, key)
	require.NoError(t, err)
	assert.Contains(t, u, "X-Amz-Expires=86400")

	require.NoError(t, store.Delete(ctx, key))
	assert.Empty(t, fake.objects)
	assert.True(t, store.Reachable(ctx))
}

func TestS3StoreCustomDomainURL(t *testing.T) {
	conn := NewS3Connector(nil)
	store := conn.newStore(&models.StorageConfig{Endpoint: "minio.local", Port: 9000, Bucket: "b", CustomDomain: "https://img.example.com"})

	u, err := store.URL(context.Background(), "2024/01/1-x.png")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/b/2024/01/1-x.png", u)
}
