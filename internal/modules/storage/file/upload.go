package file

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/minpic/core/internal/models"
	"github.com/minpic/core/internal/modules/shortlink"
	"github.com/minpic/core/internal/pkg/metrics"
	"github.com/minpic/core/internal/pkg/searchindex"
	"go.uber.org/zap"
)

// Upload stores the payload in the resolved source, records it and, when
// auto-generation is on, mints a short link. A short-link failure leaves the
// upload intact without a code.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	cfg, err := s.configs.Resolve(ctx, in.ConfigID)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("", "config").Inc()
		return nil, err
	}

	mimeType := detectMIME(in.MimeType, in.Filename)
	fileType, ok := models.FileTypeFromMIME(mimeType)
	if !ok {
		metrics.UploadsTotal.WithLabelValues("", "type").Inc()
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}

	store, err := s.connector.Connect(ctx, cfg)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(string(fileType), "storage").Inc()
		return nil, fmt.Errorf("%w: connect %s: %v", ErrStorage, cfg.ID, err)
	}
	key, err := store.Upload(ctx, in.Data, in.Filename, mimeType)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(string(fileType), "storage").Inc()
		return nil, fmt.Errorf("%w: upload: %v", ErrStorage, err)
	}

	now := s.now()
	configID := cfg.ID
	rec := &models.File{
		Filename:  in.Filename,
		MinioPath: key,
		FileSize:  int64(len(in.Data)),
		MimeType:  mimeType,
		FileType:  fileType,
		ConfigID:  &configID,
		Pinyin:    searchindex.Build(in.Filename),
		ExpiresAt: expiry(in.ExpiresAt, cfg.ExpirationDays, now),
	}
	// Dimensions come from the header and survive a failed preview.
	res, ok := s.preview(ctx, in.Data, mimeType)
	rec.Width, rec.Height = res.Width, res.Height
	if ok {
		rec.ThumbnailData = res.Data
		marker := models.ThumbnailInDatabase
		rec.ThumbnailPath = &marker
	}

	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		if derr := store.Delete(ctx, key); derr != nil {
			s.logger.Warn("orphaned object after failed insert", zap.String("key", key), zap.Error(derr))
		}
		metrics.UploadsTotal.WithLabelValues(string(fileType), "catalog").Inc()
		return nil, fmt.Errorf("record upload: %w", err)
	}

	result := &UploadResult{File: rec}
	if sl, _ := s.configs.ShortlinkIfAutoCreate(ctx); sl != nil && s.shortlinks != nil {
		if link := s.mintShortlink(ctx, rec, store, *sl, s.retry); link != nil {
			result.Shortlink = link.ShortURL
		}
	}

	metrics.UploadsTotal.WithLabelValues(string(fileType), "ok").Inc()
	s.logger.Info("file uploaded",
		zap.String("id", rec.ID),
		zap.String("key", key),
		zap.String("configId", configID),
		zap.Int64("size", rec.FileSize),
	)
	return result, nil
}

// urlResolver is the slice of objectstore.Store needed to mint a link.
type urlResolver interface {
	URL(ctx context.Context, key string) (string, error)
}

// mintShortlink creates a link for rec and stores its code. Failures are
// logged and reported as nil.
func (s *Service) mintShortlink(ctx context.Context, rec *models.File, store urlResolver, cfg models.ShortlinkConfig, policy shortlink.RetryPolicy) *shortlink.Link {
	url, err := store.URL(ctx, rec.MinioPath)
	if err != nil {
		s.logger.Warn("resolve url for shortlink", zap.String("id", rec.ID), zap.Error(err))
		return nil
	}
	link, err := shortlink.CreateWithRetry(ctx, s.shortlinks(cfg), url, "", cfg.ExpiresIn, policy, s.logger)
	if err != nil {
		s.logger.Warn("shortlink not created", zap.String("id", rec.ID), zap.Error(err))
		return nil
	}
	if err := s.db.WithContext(ctx).Model(rec).Update("shortlink_code", link.ShortCode).Error; err != nil {
		s.logger.Warn("store shortlink code", zap.String("id", rec.ID), zap.Error(err))
		return nil
	}
	rec.ShortlinkCode = &link.ShortCode
	return link
}

func expiry(explicit *time.Time, days int, now time.Time) *time.Time {
	if explicit != nil {
		t := explicit.UTC()
		return &t
	}
	if days <= 0 {
		return nil
	}
	t := now.AddDate(0, 0, days).UTC()
	return &t
}

func detectMIME(declared, filename string) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if byExt := mime.TypeByExtension(strings.ToLower(path.Ext(filename))); byExt != "" {
		if i := strings.IndexByte(byExt, ';'); i >= 0 {
			byExt = byExt[:i]
		}
		return byExt
	}
	if declared == "" {
		return "application/octet-stream"
	}
	return declared
}
