package repository

import (
	"context"
	"errors"

	"github.com/amirphl/fast-ads/models"
	"gorm.io/gorm"
)

// ChannelRepositoryImpl implements the ChannelRepository interface
type ChannelRepositoryImpl struct {
	*BaseRepository[models.Channel, models.ChannelFilter]
}

// NewChannelRepository creates a new channel repository
func NewChannelRepository(db *gorm.DB) ChannelRepository {
	return &ChannelRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Channel, models.ChannelFilter](db),
	}
}

// BySlug retrieves a channel of a tenant by slug, whatever its status
func (r *ChannelRepositoryImpl) BySlug(ctx context.Context, tenantID uint, slug string) (*models.Channel, error) {
	var channel models.Channel
	err := r.getDB(ctx).
		Where("tenant_id = ? AND slug = ?", tenantID, slug).
		First(&channel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &channel, nil
}

// ByFilter retrieves channels based on filter criteria
func (r *ChannelRepositoryImpl) ByFilter(ctx context.Context, filter models.ChannelFilter, orderBy string, limit, offset int) ([]*models.Channel, error) {
	query := page(r.applyFilter(r.getDB(ctx), filter), orderBy, limit, offset)

	var channels []*models.Channel
	if err := query.Find(&channels).Error; err != nil {
		return nil, err
	}
	return channels, nil
}

// Count returns the number of channels matching the filter
func (r *ChannelRepositoryImpl) Count(ctx context.Context, filter models.ChannelFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.getDB(ctx).Model(&models.Channel{}), filter).Count(&count).Error
	return count, err
}

func (r *ChannelRepositoryImpl) applyFilter(db *gorm.DB, filter models.ChannelFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.TenantID != nil {
		db = db.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.Slug != nil {
		db = db.Where("slug = ?", *filter.Slug)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	return db
}
