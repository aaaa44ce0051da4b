// Package file is the catalog of stored media: upload, listing, editing,
// download and deletion.
package file

import (
	"context"
	"time"

	"github.com/minpic/core/internal/models"
	"github.com/minpic/core/internal/modules/shortlink"
	"github.com/minpic/core/internal/modules/storage/objectstore"
	"github.com/minpic/core/internal/modules/storage/thumbnail"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Configs is the part of the config service the catalog depends on.
type Configs interface {
	Resolve(ctx context.Context, hint string) (*models.StorageConfig, error)
	EffectiveSource(ctx context.Context) (string, bool, error)
	Shortlink(ctx context.Context) (*models.ShortlinkConfig, error)
	ShortlinkIfAutoCreate(ctx context.Context) (*models.ShortlinkConfig, error)
}

type Service struct {
	db         *gorm.DB
	configs    Configs
	connector  objectstore.Connector
	thumbs     thumbnail.Generator
	shortlinks shortlink.Factory
	retry      shortlink.RetryPolicy
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

// WithRetry sets the short-link creation policy used by uploads.
func WithRetry(p shortlink.RetryPolicy) Option {
	return func(s *Service) { s.retry = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(db *gorm.DB, configs Configs, connector objectstore.Connector, opts ...Option) *Service {
	s := &Service{
		db:        db,
		configs:   configs,
		connector: connector,
		retry:     shortlink.RetryPolicy{Attempts: 3, Backoff: time.Second},
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("FileService")
	return s
}

// shortlinkAPI returns a client for deletes and explicit creates, or nil when
// no credentials are stored.
func (s *Service) shortlinkAPI(ctx context.Context) (shortlink.API, *models.ShortlinkConfig) {
	if s.shortlinks == nil {
		return nil, nil
	}
	cfg, err := s.configs.Shortlink(ctx)
	if err != nil {
		return nil, nil
	}
	if cfg.APIURL == "" || cfg.APIKey == "" {
		return nil, nil
	}
	return s.shortlinks(*cfg), cfg
}

func (s *Service) preview(ctx context.Context, data []byte, mimeType string) (thumbnail.Result, bool) {
	if s.thumbs == nil {
		return thumbnail.Result{}, false
	}
	res, err := s.thumbs.Generate(ctx, data, mimeType)
	if err != nil {
		s.logger.Debug("preview skipped", zap.String("mime", mimeType), zap.Error(err))
		return res, false
	}
	return res, true
}
