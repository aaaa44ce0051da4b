package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/minpic/core/internal/pkg/cron"
	"github.com/minpic/core/internal/pkg/nativelog"
	pkgredis "github.com/minpic/core/internal/pkg/redis"
	"github.com/minpic/core/internal/pkg/response"
	"gorm.io/gorm"
)

const pingTimeout = 2 * time.Second

type logItem struct {
	Size     string `json:"size"`
	Filename string `json:"filename"`
	Index    int    `json:"index"`
	Created  int64  `json:"created"`
}

// Deps is what the probes and admin endpoints read. Redis is optional.
type Deps struct {
	DB     *gorm.DB
	Redis  *pkgredis.Client
	Sched  *cron.Scheduler
	LogDir string
}

// Probe pings the catalog and, when configured, Redis.
func Probe(ctx context.Context, d Deps) (int, gin.H) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	body := gin.H{}
	healthy := true

	sqlDB, err := d.DB.DB()
	dbOK := err == nil && sqlDB.PingContext(ctx) == nil
	body["database"] = dbOK
	healthy = healthy && dbOK

	if d.Redis != nil {
		redisOK := d.Redis.Raw().Ping(ctx).Err() == nil
		body["redis"] = redisOK
		healthy = healthy && redisOK
	}

	if !healthy {
		body["status"] = "degraded"
		return http.StatusServiceUnavailable, body
	}
	body["status"] = "ok"
	return http.StatusOK, body
}

// Handler serves the public probe.
func Handler(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		code, body := Probe(c.Request.Context(), d)
		c.JSON(code, body)
	}
}

func RegisterRoutes(rg *gin.RouterGroup, d Deps, authMW gin.HandlerFunc) {
	rg.GET("/health", Handler(d))

	adminHealth := rg.Group("/health", authMW)
	cronGroup := adminHealth.Group("/cron")
	{
		cronGroup.GET("", func(c *gin.Context) {
			items := d.Sched.List()
			byName := make(map[string]cron.ListItem, len(items))
			for _, item := range items {
				byName[item.Name] = item
			}
			response.OK(c, byName)
		})

		cronGroup.POST("/run/:name", func(c *gin.Context) {
			if err := d.Sched.Run(c.Request.Context(), c.Param("name")); err != nil {
				response.NotFoundMsg(c, err.Error())
				return
			}
			response.OK(c, gin.H{"message": "job triggered"})
		})
	}

	logGroup := adminHealth.Group("/log")
	{
		logGroup.GET("/list", func(c *gin.Context) {
			entries, err := os.ReadDir(d.LogDir)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					response.OK(c, []logItem{})
					return
				}
				response.InternalError(c, err)
				return
			}

			items := make([]logItem, 0, len(entries))
			for _, entry := range entries {
				if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".log") {
					continue
				}
				info, err := entry.Info()
				if err != nil {
					continue
				}
				items = append(items, logItem{
					Size:     formatByteSize(info.Size()),
					Filename: entry.Name(),
					Created:  info.ModTime().UnixMilli(),
				})
			}

			sort.Slice(items, func(i, j int) bool {
				return items[i].Created > items[j].Created
			})
			for i := range items {
				items[i].Index = i
			}
			response.OK(c, items)
		})

		logGroup.GET("", func(c *gin.Context) {
			filename, ok := logFilename(c)
			if !ok {
				return
			}
			data, err := os.ReadFile(filepath.Join(d.LogDir, filename))
			if err != nil {
				response.BadRequest(c, "log file not exists")
				return
			}
			c.Data(http.StatusOK, "text/plain; charset=utf-8", data)
		})

		logGroup.DELETE("", func(c *gin.Context) {
			filename, ok := logFilename(c)
			if !ok {
				return
			}
			target := filepath.Join(d.LogDir, filename)
			// Today's file is held open by the writer; truncate instead.
			if filename == nativelog.TodayFilename(time.Now()) {
				if err := os.WriteFile(target, nil, 0o644); err != nil && !errors.Is(err, os.ErrNotExist) {
					response.InternalError(c, err)
					return
				}
			} else if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
				response.InternalError(c, err)
				return
			}
			response.NoContent(c)
		})
	}
}

func logFilename(c *gin.Context) (string, bool) {
	filename := filepath.Base(strings.TrimSpace(c.Query("filename")))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		response.UnprocessableEntity(c, "filename must be string")
		return "", false
	}
	return filename, true
}

func formatByteSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.2f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}
