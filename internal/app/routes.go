package app

import (
	"github.com/gin-gonic/gin"
	"github.com/minpic/core/internal/modules/stats/summary"
	"github.com/minpic/core/internal/modules/storage/bucketsync"
	"github.com/minpic/core/internal/modules/storage/file"
	appconfigs "github.com/minpic/core/internal/modules/system/core/configs"
	"github.com/minpic/core/internal/modules/system/core/health"
	"github.com/minpic/core/internal/pkg/response"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const apiPrefix = "/api"

func (a *App) registerRoutes(svcs *services, authMW gin.HandlerFunc) {
	r := a.router

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	healthDeps := health.Deps{DB: a.db, Redis: a.rc, Sched: a.sched, LogDir: a.cfg.LogDir()}
	r.GET("/healthz", health.Handler(healthDeps))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group(apiPrefix)
	api.GET("/ping", func(c *gin.Context) {
		response.OK(c, gin.H{"message": "pong"})
	})

	health.RegisterRoutes(api, healthDeps, authMW)
	appconfigs.NewHandler(svcs.configs, svcs.connector, svcs.shortlinks).RegisterRoutes(api, authMW)
	bucketsync.NewHandler(svcs.sync).RegisterRoutes(api, authMW)
	file.NewHandler(svcs.files).RegisterRoutes(api, authMW)
	summary.RegisterRoutes(api, a.db, authMW)
}
