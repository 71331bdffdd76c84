package repository

import (
	"context"

	"github.com/amirphl/fast-ads/models"
	"gorm.io/gorm"
)

// AdDecisionLogRepositoryImpl implements AdDecisionLogRepository
type AdDecisionLogRepositoryImpl struct {
	*BaseRepository[models.AdDecisionLog, any]
}

func NewAdDecisionLogRepository(db *gorm.DB) AdDecisionLogRepository {
	return &AdDecisionLogRepositoryImpl{BaseRepository: NewBaseRepository[models.AdDecisionLog, any](db)}
}

func (r *AdDecisionLogRepositoryImpl) CountByTenant(ctx context.Context, tenantID uint) (int64, error) {
	var count int64
	if err := r.getDB(ctx).Model(&models.AdDecisionLog{}).Where("tenant_id = ?", tenantID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
