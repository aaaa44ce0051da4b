package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/minpic/core/internal/pkg/response"
	"gorm.io/gorm"
)

const (
	DefaultPage = 1
	DefaultSize = 20
	MaxSize     = 100
)

// Query holds parsed pagination parameters.
type Query struct {
	Page int
	Size int
}

// FromContext extracts and validates ?page and ?pageSize from the request.
func FromContext(c *gin.Context) Query {
	return Normalize(
		parseIntOr(c.Query("page"), DefaultPage),
		parseIntOr(c.Query("pageSize"), DefaultSize),
	)
}

// Normalize clamps page and size into the accepted range.
func Normalize(page, size int) Query {
	if page < 1 {
		page = DefaultPage
	}
	if size < 1 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	return Query{Page: page, Size: size}
}

// Paginate applies limit/offset to a GORM query and returns the pagination metadata.
func Paginate[T any](db *gorm.DB, q Query, dest *[]T) (response.Pagination, error) {
	var total int64
	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return response.Pagination{}, err
	}

	offset := (q.Page - 1) * q.Size
	if err := db.Offset(offset).Limit(q.Size).Find(dest).Error; err != nil {
		return response.Pagination{}, err
	}

	return response.Pagination{
		Page:       q.Page,
		PageSize:   q.Size,
		Total:      total,
		TotalPages: int((total + int64(q.Size) - 1) / int64(q.Size)),
	}, nil
}

func parseIntOr(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
