package file

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/minpic/core/internal/models"
	"github.com/minpic/core/internal/modules/shortlink"
	"github.com/minpic/core/internal/modules/storage/objectstore"
	"github.com/minpic/core/internal/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// objectDeleteLimit bounds concurrent object deletes within one source.
const objectDeleteLimit = 16

// Delete removes one file. Storage and short-link cleanups are best-effort and
// run alongside the row delete; only a catalog failure is returned.
func (s *Service) Delete(ctx context.Context, id string, mode DeleteMode) error {
	rec, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	log := s.logger.With(zap.String("id", rec.ID), zap.String("mode", string(mode)))

	var g errgroup.Group
	if mode == DeleteFull {
		g.Go(func() error {
			cfg, err := s.configs.Resolve(ctx, rec.ConfigHint())
			if err != nil {
				metrics.StorageFailuresTotal.WithLabelValues("resolve").Inc()
				log.Warn("no storage config for file, object left in place", zap.Error(err))
				return nil
			}
			store, err := s.connector.Connect(ctx, cfg)
			if err != nil {
				metrics.StorageFailuresTotal.WithLabelValues("connect").Inc()
				log.Warn("connect for delete", zap.Object("config", cfg), zap.Error(err))
				return nil
			}
			s.deleteObjects(ctx, store, []models.File{*rec})
			return nil
		})
	}
	if rec.ShortlinkCode != nil && *rec.ShortlinkCode != "" {
		g.Go(func() error {
			if api, _ := s.shortlinkAPI(ctx); api != nil {
				if err := api.Delete(ctx, *rec.ShortlinkCode); err != nil {
					log.Warn("delete shortlink", zap.String("code", *rec.ShortlinkCode), zap.Error(err))
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		return s.db.WithContext(ctx).Delete(&models.File{}, "id = ?", rec.ID).Error
	})
	if err := g.Wait(); err != nil {
		return err
	}

	metrics.DeletedFilesTotal.WithLabelValues(string(mode)).Inc()
	log.Info("file deleted")
	return nil
}

// BatchDelete removes many files, connecting once per source. Rows are always
// removed; remote cleanup failures are counted in the result.
func (s *Service) BatchDelete(ctx context.Context, ids []string, mode DeleteMode) (*BatchDeleteResult, error) {
	if len(ids) == 0 {
		return &BatchDeleteResult{}, nil
	}
	var files []models.File
	if err := s.db.WithContext(ctx).Omit("thumbnail_data").Where("id IN ?", ids).Find(&files).Error; err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrFileNotFound
	}

	res := &BatchDeleteResult{}
	if mode == DeleteFull {
		res.StorageFailures = s.deleteGroups(ctx, files)
	}
	res.ShortlinkFailures = s.deleteShortlinks(ctx, files)

	found := make([]string, len(files))
	for i := range files {
		found[i] = files[i].ID
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", found).Delete(&models.File{}).Error; err != nil {
		return nil, err
	}
	res.DeletedCount = len(files)

	metrics.DeletedFilesTotal.WithLabelValues(string(mode)).Add(float64(res.DeletedCount))
	s.logger.Info("batch delete finished",
		zap.String("mode", string(mode)),
		zap.Int("deleted", res.DeletedCount),
		zap.Int("storageFailures", res.StorageFailures),
		zap.Int("shortlinkFailures", res.ShortlinkFailures),
	)
	return res, nil
}

// deleteGroups deletes stored objects grouped by effective source and returns
// the number of files whose objects could not be removed.
func (s *Service) deleteGroups(ctx context.Context, files []models.File) int {
	groups := make(map[string][]models.File)
	var order []string
	for _, f := range files {
		id := f.EffectiveConfigID()
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}
		groups[id] = append(groups[id], f)
	}

	var failed atomic.Int64
	var g errgroup.Group
	for _, id := range order {
		group := groups[id]
		g.Go(func() error {
			hint := id
			if hint == models.LegacyConfigID {
				hint = ""
			}
			cfg, err := s.configs.Resolve(ctx, hint)
			if err == nil {
				var store objectstore.Store
				if store, err = s.connector.Connect(ctx, cfg); err == nil {
					failed.Add(int64(s.deleteObjects(ctx, store, group)))
					return nil
				}
			}
			metrics.StorageFailuresTotal.WithLabelValues("connect").Inc()
			s.logger.Warn("storage group skipped", zap.String("configId", id), zap.Int("files", len(group)), zap.Error(err))
			failed.Add(int64(len(group)))
			return nil
		})
	}
	_ = g.Wait()
	return int(failed.Load())
}

// deleteObjects removes the primary object and any legacy remote preview of
// each file concurrently, returning the number of files with a failed primary delete.
func (s *Service) deleteObjects(ctx context.Context, store objectstore.Store, files []models.File) int {
	var failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(objectDeleteLimit)
	for _, f := range files {
		g.Go(func() error {
			if err := store.Delete(ctx, f.MinioPath); err != nil {
				failed.Add(1)
				metrics.StorageFailuresTotal.WithLabelValues("delete").Inc()
				s.logger.Warn("delete object", zap.String("key", f.MinioPath), zap.Error(err))
			}
			return nil
		})
		if key, ok := f.LegacyThumbnailKey(); ok {
			g.Go(func() error {
				if err := store.Delete(ctx, key); err != nil {
					metrics.StorageFailuresTotal.WithLabelValues("delete_preview").Inc()
					s.logger.Warn("delete preview object", zap.String("key", key), zap.Error(err))
				}
				return nil
			})
		}
	}
	_ = g.Wait()
	return int(failed.Load())
}

func (s *Service) deleteShortlinks(ctx context.Context, files []models.File) int {
	var codes []string
	for _, f := range files {
		if f.ShortlinkCode != nil && *f.ShortlinkCode != "" {
			codes = append(codes, *f.ShortlinkCode)
		}
	}
	if len(codes) == 0 {
		return 0
	}
	api, _ := s.shortlinkAPI(ctx)
	if api == nil {
		return len(codes)
	}
	return deleteCodes(ctx, api, codes, s.logger)
}

func deleteCodes(ctx context.Context, api shortlink.API, codes []string, logger *zap.Logger) int {
	var failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(objectDeleteLimit)
	for _, code := range codes {
		g.Go(func() error {
			if err := api.Delete(ctx, code); err != nil {
				failed.Add(1)
				logger.Warn("delete shortlink", zap.String("code", code), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(failed.Load())
}

// expiryBatchSize bounds one sweep statement.
const expiryBatchSize = 100

// DeleteExpired runs a full delete of every file whose expiresAt has passed.
func (s *Service) DeleteExpired(ctx context.Context) (int, error) {
	total := 0
	for {
		var ids []string
		err := s.db.WithContext(ctx).Model(&models.File{}).
			Where("expires_at IS NOT NULL AND expires_at <= ?", s.now().UTC()).
			Order("expires_at asc").
			Limit(expiryBatchSize).
			Pluck("id", &ids).Error
		if err != nil {
			return total, err
		}
		if len(ids) == 0 {
			return total, nil
		}
		res, err := s.BatchDelete(ctx, ids, DeleteFull)
		if err != nil {
			if errors.Is(err, ErrFileNotFound) {
				return total, nil
			}
			return total, err
		}
		total += res.DeletedCount
		if len(ids) < expiryBatchSize {
			return total, nil
		}
	}
}

func (s *Service) fetch(ctx context.Context, id string) (*models.File, error) {
	var rec models.File
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return &rec, nil
}
