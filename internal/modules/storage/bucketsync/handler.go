package bucketsync

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/minpic/core/internal/modules/system/core/configs"
	"github.com/minpic/core/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/files/sync", authMW)
	g.POST("", h.sync)
	g.GET("/:configId", h.last)
}

func (h *Handler) sync(c *gin.Context) {
	var body struct {
		ConfigID string `json:"configId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.ConfigID == "" {
		response.BadRequest(c, "configId is required")
		return
	}

	// A client disconnect must not stop a half-finished import.
	ctx := context.WithoutCancel(c.Request.Context())
	res, err := h.svc.Sync(ctx, body.ConfigID)
	if err != nil {
		switch {
		case errors.Is(err, ErrConfigRequired):
			response.BadRequest(c, err.Error())
		case errors.Is(err, configs.ErrConfigNotFound):
			response.NotFoundMsg(c, "config not found")
		case errors.Is(err, ErrSyncRunning):
			response.Conflict(c, err.Error())
		case errors.Is(err, ErrStorage):
			response.BadGateway(c, err)
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.OK(c, gin.H{
		"success":           true,
		"total":             res.Total,
		"imported":          res.Imported,
		"skipped":           res.Skipped,
		"errors":            res.Errors,
		"shortlinksCreated": res.ShortlinksCreated,
		"shortlinksFailed":  res.ShortlinksFailed,
	})
}

func (h *Handler) last(c *gin.Context) {
	res, err := h.svc.LastResult(c.Request.Context(), c.Param("configId"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if res == nil {
		response.NotFoundMsg(c, "no sync has run for this config")
		return
	}
	response.OK(c, res)
}
