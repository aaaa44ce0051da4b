package file

import (
	"context"
	"fmt"

	"github.com/minpic/core/internal/models"
	"github.com/minpic/core/internal/modules/storage/objectstore"
	"go.uber.org/zap"
)

// Download fetches the stored object through the file's source, falling back
// to the legacy record for rows whose source is gone.
func (s *Service) Download(ctx context.Context, id string) (*Media, error) {
	rec, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	store, err := s.storeFor(ctx, rec)
	if err != nil {
		return nil, err
	}
	data, err := store.Download(ctx, rec.MinioPath)
	if err != nil {
		return nil, fmt.Errorf("%w: download %s: %v", ErrStorage, rec.MinioPath, err)
	}
	return &Media{Data: data, MimeType: rec.MimeType, Filename: rec.Filename}, nil
}

// Thumbnail returns the stored preview. Missing video previews are generated
// and legacy remote previews are copied into the catalog on first access. A
// nil result with no error means the caller should serve the original.
func (s *Service) Thumbnail(ctx context.Context, id string) ([]byte, error) {
	rec, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(rec.ThumbnailData) > 0 {
		return rec.ThumbnailData, nil
	}
	log := s.logger.With(zap.String("id", rec.ID))

	if rec.FileType == models.FileVideo {
		data, width, height, err := s.generateVideoPreview(ctx, rec)
		if err == nil {
			s.storePreview(ctx, rec, data, width, height)
			return data, nil
		}
		log.Warn("lazy video preview failed", zap.Error(err))
	}

	if key, ok := rec.LegacyThumbnailKey(); ok {
		data, err := s.fetchLegacyPreview(ctx, rec, key)
		if err == nil {
			s.storePreview(ctx, rec, data, nil, nil)
			return data, nil
		}
		log.Warn("legacy preview migration failed", zap.String("key", key), zap.Error(err))
	}
	return nil, nil
}

func (s *Service) generateVideoPreview(ctx context.Context, rec *models.File) ([]byte, *int, *int, error) {
	store, err := s.storeFor(ctx, rec)
	if err != nil {
		return nil, nil, nil, err
	}
	data, err := store.Download(ctx, rec.MinioPath)
	if err != nil {
		return nil, nil, nil, err
	}
	res, ok := s.preview(ctx, data, rec.MimeType)
	if !ok {
		return nil, nil, nil, fmt.Errorf("no preview for %s", rec.MimeType)
	}
	return res.Data, res.Width, res.Height, nil
}

func (s *Service) fetchLegacyPreview(ctx context.Context, rec *models.File, key string) ([]byte, error) {
	store, err := s.storeFor(ctx, rec)
	if err != nil {
		return nil, err
	}
	return store.Download(ctx, key)
}

func (s *Service) storePreview(ctx context.Context, rec *models.File, data []byte, width, height *int) {
	updates := map[string]interface{}{
		"thumbnail_data": data,
		"thumbnail_path": models.ThumbnailInDatabase,
	}
	if width != nil && rec.Width == nil {
		updates["width"] = *width
	}
	if height != nil && rec.Height == nil {
		updates["height"] = *height
	}
	if err := s.db.WithContext(ctx).Model(&models.File{}).Where("id = ?", rec.ID).Updates(updates).Error; err != nil {
		s.logger.Warn("persist preview", zap.String("id", rec.ID), zap.Error(err))
	}
}

func (s *Service) storeFor(ctx context.Context, rec *models.File) (objectstore.Store, error) {
	cfg, err := s.configs.Resolve(ctx, rec.ConfigHint())
	if err != nil {
		return nil, err
	}
	store, err := s.connector.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %v", ErrStorage, cfg.ID, err)
	}
	return store, nil
}
