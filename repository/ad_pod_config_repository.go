package repository

import (
	"context"
	"errors"

	"github.com/amirphl/fast-ads/models"
	"gorm.io/gorm"
)

// AdPodConfigRepositoryImpl implements the AdPodConfigRepository interface
type AdPodConfigRepositoryImpl struct {
	*BaseRepository[models.AdPodConfig, any]
}

// NewAdPodConfigRepository creates a new pod config repository
func NewAdPodConfigRepository(db *gorm.DB) AdPodConfigRepository {
	return &AdPodConfigRepositoryImpl{
		BaseRepository: NewBaseRepository[models.AdPodConfig, any](db),
	}
}

// Resolve returns the channel specific config for the position, falling back to the
// tenant wide default (channel_id IS NULL). It returns nil when neither exists.
func (r *AdPodConfigRepositoryImpl) Resolve(ctx context.Context, tenantID, channelID uint, position models.PositionType) (*models.AdPodConfig, error) {
	db := r.getDB(ctx)

	var cfg models.AdPodConfig
	err := db.Where("tenant_id = ? AND channel_id = ? AND position_type = ?", tenantID, channelID, position).
		Order("id DESC").
		First(&cfg).Error
	if err == nil {
		return &cfg, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = db.Where("tenant_id = ? AND channel_id IS NULL AND position_type = ?", tenantID, position).
		Order("id DESC").
		First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}
