// Package objectstoretest provides an in-memory objectstore.Connector for tests.
package objectstoretest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/minpic/core/internal/models"
	"github.com/minpic/core/internal/modules/storage/objectstore"
)

// ErrUnreachable is returned by every call against a bucket marked down.
var ErrUnreachable = errors.New("objectstoretest: bucket unreachable")

// Object is a stored blob.
type Object struct {
	Data     []byte
	MimeType string
}

// Bucket is one in-memory bucket, addressed by config id.
type Bucket struct {
	mu      sync.Mutex
	objects map[string]Object
	down    bool
	deleted []string
}

// Connector hands out stores over shared in-memory buckets keyed by config id.
type Connector struct {
	mu       sync.Mutex
	buckets  map[string]*Bucket
	connects map[string]int
	Now      func() time.Time
}

func NewConnector() *Connector {
	return &Connector{
		buckets:  make(map[string]*Bucket),
		connects: make(map[string]int),
		Now:      time.Now,
	}
}

// Bucket returns (creating if needed) the bucket backing configID.
func (c *Connector) Bucket(configID string) *Bucket {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.buckets[configID]
	if !ok {
		b = &Bucket{objects: make(map[string]Object)}
		c.buckets[configID] = b
	}
	return b
}

// Connects reports how many times configID was connected.
func (c *Connector) Connects(configID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connects[configID]
}

func (c *Connector) Connect(ctx context.Context, cfg *models.StorageConfig) (objectstore.Store, error) {
	b := c.Bucket(cfg.ID)
	c.mu.Lock()
	c.connects[cfg.ID]++
	c.mu.Unlock()
	if b.isDown() {
		return nil, ErrUnreachable
	}
	return &store{bucket: b, cfg: *cfg, now: c.Now}, nil
}

// Put seeds an object.
func (b *Bucket) Put(key string, data []byte, mimeType string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = Object{Data: data, MimeType: mimeType}
}

// Get returns a stored object.
func (b *Bucket) Get(key string) (Object, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.objects[key]
	return o, ok
}

// Keys lists stored keys in order.
func (b *Bucket) Keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Deleted lists keys removed through Delete, in call order.
func (b *Bucket) Deleted() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.deleted...)
}

// SetDown makes Connect and every store call fail.
func (b *Bucket) SetDown(down bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.down = down
}

func (b *Bucket) isDown() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.down
}

type store struct {
	bucket *Bucket
	cfg    models.StorageConfig
	now    func() time.Time
}

func (s *store) Upload(ctx context.Context, data []byte, suggestedName, mimeType string) (string, error) {
	if s.bucket.isDown() {
		return "", ErrUnreachable
	}
	key := objectstore.BuildObjectKey(&s.cfg, suggestedName, s.now())
	s.bucket.Put(key, append([]byte(nil), data...), mimeType)
	return key, nil
}

func (s *store) URL(ctx context.Context, key string) (string, error) {
	if s.cfg.CustomDomain != "" {
		return objectstore.PublicURL(s.cfg.CustomDomain, s.cfg.Bucket, key), nil
	}
	return fmt.Sprintf("memory://%s/%s?expires=%d", s.cfg.Bucket, key, int(objectstore.PresignTTL.Seconds())), nil
}

func (s *store) Download(ctx context.Context, key string) ([]byte, error) {
	if s.bucket.isDown() {
		return nil, ErrUnreachable
	}
	o, ok := s.bucket.Get(key)
	if !ok {
		return nil, fmt.Errorf("objectstoretest: no such key %q", key)
	}
	return o.Data, nil
}

func (s *store) Delete(ctx context.Context, key string) error {
	if s.bucket.isDown() {
		return ErrUnreachable
	}
	s.bucket.mu.Lock()
	defer s.bucket.mu.Unlock()
	delete(s.bucket.objects, key)
	s.bucket.deleted = append(s.bucket.deleted, key)
	return nil
}

func (s *store) List(ctx context.Context, prefix string) ([]objectstore.ObjectInfo, error) {
	if s.bucket.isDown() {
		return nil, ErrUnreachable
	}
	var out []objectstore.ObjectInfo
	for _, k := range s.bucket.Keys() {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		o, _ := s.bucket.Get(k)
		out = append(out, objectstore.ObjectInfo{Key: k, Size: int64(len(o.Data))})
	}
	return out, nil
}

func (s *store) Reachable(ctx context.Context) bool { return !s.bucket.isDown() }
