package configs

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/minpic/core/internal/models"
	"github.com/minpic/core/internal/modules/shortlink"
	"github.com/minpic/core/internal/pkg/response"
)

// Prober checks that a storage source answers without changing it.
type Prober interface {
	Probe(ctx context.Context, cfg *models.StorageConfig) error
}

type Handler struct {
	svc        *Service
	prober     Prober
	shortlinks shortlink.Factory
}

func NewHandler(svc *Service, prober Prober, shortlinks shortlink.Factory) *Handler {
	return &Handler{svc: svc, prober: prober, shortlinks: shortlinks}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/configs", authMW)

	g.GET("/storage", h.getStorage)
	g.POST("/storage", h.saveStorage)
	g.GET("/shortlink", h.getShortlink)
	g.POST("/shortlink", h.saveShortlink)
	g.POST("/test", h.test)
}

func (h *Handler) getStorage(c *gin.Context) {
	state, err := h.svc.StorageState(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, state)
}

func (h *Handler) saveStorage(c *gin.Context) {
	var body struct {
		Configs  *[]models.StorageConfig `json:"configs"`
		ActiveID string                  `json:"activeId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if body.Configs == nil {
		response.BadRequest(c, "configs must be an array")
		return
	}
	state, err := h.svc.SaveStorage(c.Request.Context(), StorageState{Configs: *body.Configs, ActiveID: body.ActiveID})
	if err != nil {
		var verr *ValidationError
		switch {
		case errors.Is(err, ErrActiveConfigMissing):
			response.BadRequest(c, "active config not found")
		case errors.As(err, &verr):
			response.BadRequest(c, verr.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.OK(c, gin.H{"success": true, "configs": state.Configs, "activeId": state.ActiveID})
}

func (h *Handler) getShortlink(c *gin.Context) {
	cfg, err := h.svc.Shortlink(c.Request.Context())
	if err != nil {
		if errors.Is(err, ErrShortlinkNotConfigured) {
			response.NotFoundMsg(c, "shortlink config not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, cfg)
}

func (h *Handler) saveShortlink(c *gin.Context) {
	var cfg models.ShortlinkConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	saved, err := h.svc.SaveShortlink(c.Request.Context(), cfg)
	if err != nil {
		if errors.Is(err, ErrInvalidShortlink) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"success": true, "config": saved})
}

type testRequest struct {
	Type string `json:"type"`
}

// test checks connectivity for an unsaved storage or short-link config. A
// failed check is reported as success=false, not as an HTTP error.
func (h *Handler) test(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	var req testRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	switch req.Type {
	case "minio", "storage":
		var cfg models.StorageConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		cfg.Normalize()
		if err := cfg.Validate(); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		reportTest(c, h.prober.Probe(ctx, &cfg))
	case "shortlink":
		var cfg models.ShortlinkConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		cfg.Normalize()
		if cfg.APIURL == "" || cfg.APIKey == "" {
			response.BadRequest(c, "apiUrl and apiKey are required")
			return
		}
		_, err := h.shortlinks(cfg).List(ctx)
		reportTest(c, err)
	default:
		response.BadRequest(c, "invalid type")
	}
}

func reportTest(c *gin.Context, err error) {
	if err != nil {
		response.OK(c, gin.H{"success": false, "message": err.Error()})
		return
	}
	response.OK(c, gin.H{"success": true})
}
