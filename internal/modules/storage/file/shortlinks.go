package file

import (
	"context"
	"fmt"

	"github.com/minpic/core/internal/modules/shortlink"
)

// CreateShortlink mints a link for an existing file with a single attempt,
// replacing any code it already had.
func (s *Service) CreateShortlink(ctx context.Context, fileID, customCode string) (*shortlink.Link, error) {
	rec, err := s.fetch(ctx, fileID)
	if err != nil {
		return nil, err
	}
	api, cfg := s.shortlinkAPI(ctx)
	if api == nil {
		return nil, ErrShortlinkUnavailable
	}
	store, err := s.storeFor(ctx, rec)
	if err != nil {
		return nil, err
	}
	url, err := store.URL(ctx, rec.MinioPath)
	if err != nil {
		return nil, fmt.Errorf("%w: url: %v", ErrStorage, err)
	}
	link, err := api.Create(ctx, url, customCode, cfg.ExpiresIn)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(rec).Update("shortlink_code", link.ShortCode).Error; err != nil {
		return nil, err
	}
	return link, nil
}
