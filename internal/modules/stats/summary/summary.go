// Package summary serves catalog-wide totals for the dashboard.
package summary

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/minpic/core/internal/models"
	"github.com/minpic/core/internal/pkg/response"
	"gorm.io/gorm"
)

const recentLimit = 5

// Summary counts every catalogued file regardless of source.
type Summary struct {
	TotalFiles      int64         `json:"totalFiles"`
	TotalImages     int64         `json:"totalImages"`
	TotalVideos     int64         `json:"totalVideos"`
	TotalAudios     int64         `json:"totalAudios"`
	TotalSize       int64         `json:"totalSize"`
	TotalShortlinks int64         `json:"totalShortlinks"`
	RecentFiles     []models.File `json:"recentFiles"`
}

func RegisterRoutes(rg *gin.RouterGroup, db *gorm.DB, authMW gin.HandlerFunc) {
	rg.GET("/stats", authMW, func(c *gin.Context) {
		s, err := Build(c.Request.Context(), db)
		if err != nil {
			response.InternalError(c, err)
			return
		}
		response.OK(c, s)
	})
}

func Build(ctx context.Context, db *gorm.DB) (*Summary, error) {
	db = db.WithContext(ctx)
	var byType []struct {
		FileType models.FileType
		Count    int64
		Size     int64
	}
	if err := db.Model(&models.File{}).
		Select("file_type, COUNT(*) AS count, COALESCE(SUM(file_size), 0) AS size").
		Group("file_type").
		Scan(&byType).Error; err != nil {
		return nil, err
	}

	s := &Summary{RecentFiles: make([]models.File, 0, recentLimit)}
	for _, row := range byType {
		s.TotalFiles += row.Count
		s.TotalSize += row.Size
		switch row.FileType {
		case models.FileImage:
			s.TotalImages = row.Count
		case models.FileVideo:
			s.TotalVideos = row.Count
		case models.FileAudio:
			s.TotalAudios = row.Count
		}
	}
	if err := db.Model(&models.File{}).
		Where("shortlink_code IS NOT NULL AND shortlink_code <> ''").
		Count(&s.TotalShortlinks).Error; err != nil {
		return nil, err
	}
	if err := db.Omit("thumbnail_data").Order("created_at desc").Limit(recentLimit).Find(&s.RecentFiles).Error; err != nil {
		return nil, err
	}
	return s, nil
}
