package file

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/minpic/core/internal/models"
	"github.com/minpic/core/internal/modules/shortlink"
	"github.com/minpic/core/internal/modules/system/core/configs"
	"github.com/minpic/core/internal/pkg/pagination"
	"github.com/minpic/core/internal/pkg/response"
)

// Handler serves the file catalog and explicit short-link operations.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/files")

	g.POST("", authMW, h.upload)
	g.GET("", authMW, h.list)
	g.DELETE("", authMW, h.batchDelete)
	g.GET("/:id", authMW, h.get)
	g.PUT("/:id", authMW, h.update)
	g.DELETE("/:id", authMW, h.delete)
	// Embedded in pages, so left public.
	g.GET("/:id/download", h.download)
	g.GET("/:id/thumbnail", h.thumbnail)

	sl := rg.Group("/shortlinks", authMW)
	sl.POST("", h.createShortlink)
	sl.GET("", h.listShortlinks)
}

func (h *Handler) upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "no file provided")
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	in := UploadInput{
		Data:     data,
		Filename: fh.Filename,
		MimeType: fh.Header.Get("Content-Type"),
		ConfigID: strings.TrimSpace(c.PostForm("configId")),
	}
	if raw := strings.TrimSpace(c.PostForm("expiresAt")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.BadRequest(c, "expiresAt must be an RFC 3339 timestamp")
			return
		}
		in.ExpiresAt = &t
	}

	res, err := h.svc.Upload(c.Request.Context(), in)
	if err != nil {
		if errors.Is(err, configs.ErrConfigNotFound) {
			response.BadRequest(c, "storage not configured")
			return
		}
		fail(c, err)
		return
	}
	response.OK(c, res)
}

func (h *Handler) list(c *gin.Context) {
	p := pagination.FromContext(c)
	files, page, err := h.svc.List(c.Request.Context(), ListQuery{
		Page:     p.Page,
		PageSize: p.Size,
		FileType: models.FileType(strings.TrimSpace(c.Query("fileType"))),
		Search:   c.Query("search"),
	})
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, "files", files, page)
}

func (h *Handler) get(c *gin.Context) {
	rec, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, rec)
}

func (h *Handler) update(c *gin.Context) {
	var body struct {
		Filename *string   `json:"filename"`
		Tags     *[]string `json:"tags"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	rec, err := h.svc.Update(c.Request.Context(), c.Param("id"), UpdateInput{Filename: body.Filename, Tags: body.Tags})
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, rec)
}

func (h *Handler) delete(c *gin.Context) {
	mode, ok := ParseDeleteMode(c.Query("deleteMode"))
	if !ok {
		response.BadRequest(c, "deleteMode must be full or record-only")
		return
	}
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), mode); err != nil {
		fail(c, err)
		return
	}
	response.OK(c, gin.H{"success": true})
}

func (h *Handler) batchDelete(c *gin.Context) {
	mode, ok := ParseDeleteMode(c.Query("deleteMode"))
	if !ok {
		response.BadRequest(c, "deleteMode must be full or record-only")
		return
	}
	var body struct {
		IDs []string `json:"ids"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || len(body.IDs) == 0 {
		response.BadRequest(c, "no ids provided")
		return
	}
	res, err := h.svc.BatchDelete(c.Request.Context(), body.IDs, mode)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			response.NotFoundMsg(c, "no files found")
			return
		}
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"deletedCount":      res.DeletedCount,
		"storageFailures":   res.StorageFailures,
		"shortlinkFailures": res.ShortlinkFailures,
	})
}

func (h *Handler) download(c *gin.Context) {
	media, err := h.svc.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, configs.ErrConfigNotFound) {
			response.NotFoundMsg(c, "storage config not found")
			return
		}
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", ContentDisposition("attachment", media.Filename))
	c.Data(http.StatusOK, media.MimeType, media.Data)
}

func (h *Handler) thumbnail(c *gin.Context) {
	data, err := h.svc.Thumbnail(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if data == nil {
		c.Redirect(http.StatusFound, strings.TrimSuffix(c.Request.URL.Path, "/thumbnail")+"/download")
		return
	}
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}

func (h *Handler) createShortlink(c *gin.Context) {
	var body struct {
		FileID     string `json:"fileId"`
		CustomCode string `json:"customCode"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.FileID) == "" {
		response.BadRequest(c, "fileId is required")
		return
	}
	link, err := h.svc.CreateShortlink(c.Request.Context(), body.FileID, strings.TrimSpace(body.CustomCode))
	if err != nil {
		if errors.Is(err, configs.ErrConfigNotFound) {
			response.BadRequest(c, "storage not configured")
			return
		}
		fail(c, err)
		return
	}
	response.OK(c, link)
}

func (h *Handler) listShortlinks(c *gin.Context) {
	files, err := h.svc.Shortlinked(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"shortlinks": files})
}

func fail(c *gin.Context, err error) {
	var status *shortlink.StatusError
	switch {
	case errors.Is(err, ErrFileNotFound):
		response.NotFoundMsg(c, "file not found")
	case errors.Is(err, ErrUnsupportedType):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrShortlinkUnavailable):
		response.BadRequest(c, err.Error())
	case errors.Is(err, configs.ErrConfigNotFound):
		response.NotFoundMsg(c, err.Error())
	case errors.Is(err, ErrStorage), errors.As(err, &status):
		response.BadGateway(c, err)
	default:
		response.InternalError(c, err)
	}
}
