package repository

import (
	"context"

	"github.com/amirphl/fast-ads/models"
	"gorm.io/gorm"
)

// AdBreakRepositoryImpl implements the AdBreakRepository interface
type AdBreakRepositoryImpl struct {
	*BaseRepository[models.AdBreak, models.AdBreakFilter]
}

// NewAdBreakRepository creates a new ad break repository
func NewAdBreakRepository(db *gorm.DB) AdBreakRepository {
	return &AdBreakRepositoryImpl{
		BaseRepository: NewBaseRepository[models.AdBreak, models.AdBreakFilter](db),
	}
}

// ListActiveByChannel returns the channel's active breaks ordered by offset
func (r *AdBreakRepositoryImpl) ListActiveByChannel(ctx context.Context, channelID uint) ([]*models.AdBreak, error) {
	status := models.AdBreakStatusActive
	filter := models.AdBreakFilter{ChannelID: &channelID, Status: &status}
	return r.ByFilter(ctx, filter, "offset_seconds ASC, id ASC", 0, 0)
}

// ByFilter retrieves ad breaks based on filter criteria
func (r *AdBreakRepositoryImpl) ByFilter(ctx context.Context, filter models.AdBreakFilter, orderBy string, limit, offset int) ([]*models.AdBreak, error) {
	query := page(r.applyFilter(r.getDB(ctx), filter), orderBy, limit, offset)

	var breaks []*models.AdBreak
	if err := query.Find(&breaks).Error; err != nil {
		return nil, err
	}
	return breaks, nil
}

// Count returns the number of ad breaks matching the filter
func (r *AdBreakRepositoryImpl) Count(ctx context.Context, filter models.AdBreakFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.getDB(ctx).Model(&models.AdBreak{}), filter).Count(&count).Error
	return count, err
}

func (r *AdBreakRepositoryImpl) applyFilter(db *gorm.DB, filter models.AdBreakFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.ChannelID != nil {
		db = db.Where("channel_id = ?", *filter.ChannelID)
	}
	if filter.PositionType != nil {
		db = db.Where("position_type = ?", *filter.PositionType)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	return db
}
