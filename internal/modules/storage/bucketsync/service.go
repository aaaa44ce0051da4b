// Package bucketsync reconciles a bucket's contents with the file catalog.
package bucketsync

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/minpic/core/internal/models"
	"github.com/minpic/core/internal/modules/shortlink"
	"github.com/minpic/core/internal/modules/storage/objectstore"
	"github.com/minpic/core/internal/modules/storage/thumbnail"
	"github.com/minpic/core/internal/pkg/metrics"
	"github.com/minpic/core/internal/pkg/searchindex"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Configs is the part of the config service a sync depends on.
type Configs interface {
	Lookup(ctx context.Context, id string) (*models.StorageConfig, error)
	ShortlinkIfAutoCreate(ctx context.Context) (*models.ShortlinkConfig, error)
}

type Service struct {
	db         *gorm.DB
	configs    Configs
	connector  objectstore.Connector
	state      State
	thumbs     thumbnail.Generator
	shortlinks shortlink.Factory
	logger     *zap.Logger
	now        func() time.Time
}

type Option func(*Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithThumbnailer(g thumbnail.Generator) Option {
	return func(s *Service) { s.thumbs = g }
}

func WithShortlinks(f shortlink.Factory) Option {
	return func(s *Service) { s.shortlinks = f }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(db *gorm.DB, configs Configs, connector objectstore.Connector, state State, opts ...Option) *Service {
	if state == nil {
		state = NewMemoryState()
	}
	s := &Service{
		db:        db,
		configs:   configs,
		connector: connector,
		state:     state,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("BucketSync")
	return s
}

// Sync lists every object of the source and imports those the catalog lacks.
// Rows pointing at another source are re-assigned. Per-object failures are
// counted and never abort the run, so rerunning after a partial failure only
// retries what is still missing.
func (s *Service) Sync(ctx context.Context, configID string) (*Result, error) {
	if configID == "" {
		return nil, ErrConfigRequired
	}
	cfg, err := s.configs.Lookup(ctx, configID)
	if err != nil {
		return nil, err
	}

	release, ok, err := s.state.Acquire(ctx, configID)
	if err != nil {
		return nil, fmt.Errorf("acquire sync guard: %w", err)
	}
	if !ok {
		return nil, ErrSyncRunning
	}
	defer release()

	store, err := s.connector.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %v", ErrStorage, cfg.ID, err)
	}
	objects, err := store.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", ErrStorage, err)
	}

	sl, err := s.configs.ShortlinkIfAutoCreate(ctx)
	if err != nil {
		s.logger.Warn("shortlink config unreadable, importing without links", zap.Error(err))
	}
	if s.shortlinks == nil {
		sl = nil
	}

	res := &Result{ConfigID: configID, Total: len(objects), StartedAt: s.now()}
	log := s.logger.With(zap.String("configId", configID))
	log.Info("sync started", zap.Int("objects", len(objects)))

	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := s.syncOne(ctx, store, cfg, obj, sl, res)
		metrics.SyncItemsTotal.WithLabelValues(string(out)).Inc()
		switch out {
		case outcomeImported, outcomeClaimed:
			res.Imported++
		case outcomeSkipped:
			res.Skipped++
		default:
			res.Errors++
			log.Warn("sync item failed", zap.String("key", obj.Key), zap.Error(err))
		}
	}
	res.FinishedAt = s.now()

	if err := s.state.SaveResult(ctx, *res); err != nil {
		log.Warn("store sync result", zap.Error(err))
	}
	log.Info("sync finished",
		zap.Int("total", res.Total),
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped),
		zap.Int("errors", res.Errors),
	)
	return res, nil
}

// LastResult returns the outcome of the latest completed run, or nil.
func (s *Service) LastResult(ctx context.Context, configID string) (*Result, error) {
	return s.state.LastResult(ctx, configID)
}

func (s *Service) syncOne(ctx context.Context, store objectstore.Store, cfg *models.StorageConfig, obj objectstore.ObjectInfo, sl *models.ShortlinkConfig, res *Result) (outcome, error) {
	var existing models.File
	found := s.db.WithContext(ctx).Omit("thumbnail_data").Where("minio_path = ?", obj.Key).Limit(1).Find(&existing)
	if found.Error != nil {
		return outcomeError, found.Error
	}
	if found.RowsAffected > 0 {
		if existing.ConfigID != nil && *existing.ConfigID == cfg.ID {
			return outcomeSkipped, nil
		}
		err := s.db.WithContext(ctx).Model(&models.File{}).Where("id = ?", existing.ID).Update("config_id", cfg.ID).Error
		if err != nil {
			return outcomeError, err
		}
		return outcomeClaimed, nil
	}

	mimeType := MIMEFromKey(obj.Key)
	fileType, ok := models.FileTypeFromMIME(mimeType)
	if !ok {
		return outcomeSkipped, nil
	}

	data, err := store.Download(ctx, obj.Key)
	if err != nil {
		return outcomeError, fmt.Errorf("download: %w", err)
	}

	configID := cfg.ID
	name := path.Base(obj.Key)
	rec := models.File{
		Filename:  name,
		MinioPath: obj.Key,
		FileSize:  obj.Size,
		MimeType:  mimeType,
		FileType:  fileType,
		ConfigID:  &configID,
		Pinyin:    searchindex.Build(name),
	}
	if rec.FileSize == 0 {
		rec.FileSize = int64(len(data))
	}
	// Video previews are left to the first thumbnail request.
	if fileType == models.FileImage && s.thumbs != nil {
		prev, err := s.thumbs.Generate(ctx, data, mimeType)
		rec.Width, rec.Height = prev.Width, prev.Height
		if err == nil {
			marker := models.ThumbnailInDatabase
			rec.ThumbnailData, rec.ThumbnailPath = prev.Data, &marker
		} else if !errors.Is(err, thumbnail.ErrUnsupported) {
			s.logger.Debug("preview skipped", zap.String("key", obj.Key), zap.Error(err))
		}
	}

	ins := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "minio_path"}},
		DoNothing: true,
	}).Create(&rec)
	if ins.Error != nil {
		return outcomeError, ins.Error
	}
	if ins.RowsAffected == 0 {
		// Imported concurrently by an upload or another process.
		return outcomeSkipped, nil
	}

	if sl != nil {
		if s.mintShortlink(ctx, store, &rec, *sl) {
			res.ShortlinksCreated++
		} else {
			res.ShortlinksFailed++
		}
	}
	return outcomeImported, nil
}

func (s *Service) mintShortlink(ctx context.Context, store objectstore.Store, rec *models.File, cfg models.ShortlinkConfig) bool {
	url, err := store.URL(ctx, rec.MinioPath)
	if err != nil {
		s.logger.Warn("resolve url for shortlink", zap.String("key", rec.MinioPath), zap.Error(err))
		return false
	}
	link, err := shortlink.CreateWithRetry(ctx, s.shortlinks(cfg), url, "", cfg.ExpiresIn, shortlink.Once, s.logger)
	if err != nil {
		return false
	}
	if err := s.db.WithContext(ctx).Model(&models.File{}).Where("id = ?", rec.ID).Update("shortlink_code", link.ShortCode).Error; err != nil {
		s.logger.Warn("store shortlink code", zap.String("id", rec.ID), zap.Error(err))
		return false
	}
	return true
}
