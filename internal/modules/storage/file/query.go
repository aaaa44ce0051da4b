package file

import (
	"context"
	"strings"

	"github.com/minpic/core/internal/models"
	"github.com/minpic/core/internal/pkg/pagination"
	"github.com/minpic/core/internal/pkg/response"
	"github.com/minpic/core/internal/pkg/searchindex"
)

// List pages the catalog newest first. Once sources are registered only the
// files of the effective source are shown, so rows without a configId stay
// hidden until a sync claims them.
func (s *Service) List(ctx context.Context, q ListQuery) ([]models.File, response.Pagination, error) {
	tx := s.db.WithContext(ctx).Model(&models.File{}).Omit("thumbnail_data")

	sourceID, filtered, err := s.configs.EffectiveSource(ctx)
	if err != nil {
		return nil, response.Pagination{}, err
	}
	if filtered {
		tx = tx.Where("config_id = ?", sourceID)
	}
	if q.FileType != "" {
		tx = tx.Where("file_type = ?", q.FileType)
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		lower := "%" + escapeLike(strings.ToLower(term)) + "%"
		folded := "%" + escapeLike(searchindex.Fold(term)) + "%"
		tx = tx.Where("(LOWER(filename) LIKE ? ESCAPE '!' OR pinyin LIKE ? ESCAPE '!')", lower, folded)
	}
	tx = tx.Order("created_at desc")

	files := make([]models.File, 0)
	page, err := pagination.Paginate(tx, pagination.Normalize(q.Page, q.PageSize), &files)
	if err != nil {
		return nil, response.Pagination{}, err
	}
	return files, page, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.File, error) {
	rec, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.ThumbnailData = nil
	return rec, nil
}

// Update renames and/or retags a file. Nil fields are left unchanged and an
// empty filename is ignored.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*models.File, error) {
	rec, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if in.Filename != nil {
		if name := strings.TrimSpace(*in.Filename); name != "" {
			updates["filename"] = name
			updates["pinyin"] = searchindex.Build(name)
		}
	}
	if in.Tags != nil {
		updates["tags"] = models.StringArray(*in.Tags).Clean()
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(rec).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, id)
}

// Shortlinked lists files that carry a short-link code, newest first.
func (s *Service) Shortlinked(ctx context.Context) ([]models.File, error) {
	files := make([]models.File, 0)
	err := s.db.WithContext(ctx).Omit("thumbnail_data").
		Where("shortlink_code IS NOT NULL AND shortlink_code <> ''").
		Order("created_at desc").
		Find(&files).Error
	return files, err
}

var likeEscaper = strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
