package app

import (
	"net/http"

	"github.com/minpic/core/internal/modules/shortlink"
	"github.com/minpic/core/internal/modules/storage/bucketsync"
	"github.com/minpic/core/internal/modules/storage/file"
	"github.com/minpic/core/internal/modules/storage/objectstore"
	"github.com/minpic/core/internal/modules/storage/thumbnail"
	appconfigs "github.com/minpic/core/internal/modules/system/core/configs"
)

type services struct {
	configs    *appconfigs.Service
	connector  *objectstore.S3Connector
	shortlinks shortlink.Factory
	files      *file.Service
	sync       *bucketsync.Service
}

func (a *App) services() *services {
	cfg := a.cfg
	cfgSvc := appconfigs.NewService(a.db, appconfigs.WithLogger(a.logger))
	connector := objectstore.NewS3Connector(a.logger)
	thumbs := thumbnail.New(thumbnail.Options{
		MaxWidth:   cfg.Thumbnail.MaxWidth,
		MaxHeight:  cfg.Thumbnail.MaxHeight,
		Quality:    cfg.Thumbnail.Quality,
		FFmpegPath: cfg.Thumbnail.FFmpegPath,
		Timeout:    cfg.ThumbnailTimeout(),
	}, a.logger)
	links := shortlink.NewFactory(&http.Client{Timeout: cfg.ShortlinkTimeout()})

	files := file.NewService(a.db, cfgSvc, connector,
		file.WithLogger(a.logger),
		file.WithThumbnailer(thumbs),
		file.WithShortlinks(links),
		file.WithRetry(shortlink.RetryPolicy{
			Attempts: cfg.Shortlink.Attempts,
			Backoff:  cfg.ShortlinkBackoff(),
		}),
	)

	var state bucketsync.State = bucketsync.NewMemoryState()
	if a.rc != nil {
		state = bucketsync.NewRedisState(a.rc)
	}
	syncSvc := bucketsync.NewService(a.db, cfgSvc, connector, state,
		bucketsync.WithLogger(a.logger),
		bucketsync.WithThumbnailer(thumbs),
		bucketsync.WithShortlinks(links),
	)

	return &services{
		configs:    cfgSvc,
		connector:  connector,
		shortlinks: links,
		files:      files,
		sync:       syncSvc,
	}
}
