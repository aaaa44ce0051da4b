// Package objectstore talks to S3-compatible buckets on behalf of one storage config.
package objectstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minpic/core/internal/models"
)

// PresignTTL is the lifetime of URLs handed out for sources without a custom domain.
const PresignTTL = 24 * time.Hour

// ObjectInfo describes one listed object.
type ObjectInfo struct {
	Key  string `json:"key"`
	Size int64  `json:"size"`
}

// Store is a connected client bound to a single storage config. Instances are
// created per operation and never shared across configs.
type Store interface {
	Upload(ctx context.Context, data []byte, suggestedName, mimeType string) (string, error)
	URL(ctx context.Context, key string) (string, error)
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Reachable(ctx context.Context) bool
}

// Connector opens a Store for a config, provisioning the bucket when absent.
type Connector interface {
	Connect(ctx context.Context, cfg *models.StorageConfig) (Store, error)
}

// BuildObjectKey computes the key for an upload made at now:
// [baseDir/][YYYY[/MM[/DD]]/]{unixMillis}-{sanitized name}.
func BuildObjectKey(cfg *models.StorageConfig, name string, now time.Time) string {
	var b strings.Builder
	if base := strings.Trim(cfg.BaseDir, "/"); base != "" {
		b.WriteString(base)
		b.WriteByte('/')
	}
	switch cfg.ArchiveStrategy {
	case models.ArchiveYear:
		b.WriteString(now.Format("2006/"))
	case models.ArchiveMonth:
		b.WriteString(now.Format("2006/01/"))
	case models.ArchiveDay:
		b.WriteString(now.Format("2006/01/02/"))
	}
	fmt.Fprintf(&b, "%d-%s", now.UnixMilli(), SanitizeFilename(name))
	return b.String()
}

// SanitizeFilename replaces every rune outside [A-Za-z0-9.-] with '_'.
func SanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		}
		return '_'
	}, name)
}

// PublicURL builds {domain}/{bucket}/{key} with each key segment path-escaped.
func PublicURL(domain, bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(domain, "/") + "/" + url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}
