package repository

import (
	"context"
	"errors"

	"github.com/amirphl/fast-ads/models"
	"gorm.io/gorm"
)

// AdVariantRepositoryImpl implements the AdVariantRepository interface
type AdVariantRepositoryImpl struct {
	*BaseRepository[models.AdVariant, any]
}

// NewAdVariantRepository creates a new variant repository
func NewAdVariantRepository(db *gorm.DB) AdVariantRepository {
	return &AdVariantRepositoryImpl{
		BaseRepository: NewBaseRepository[models.AdVariant, any](db),
	}
}

// ByTenantAndID retrieves a variant of any status, scoped to a tenant
func (r *AdVariantRepositoryImpl) ByTenantAndID(ctx context.Context, tenantID, variantID uint) (*models.AdVariant, error) {
	var variant models.AdVariant
	err := r.getDB(ctx).Where("tenant_id = ? AND id = ?", tenantID, variantID).First(&variant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &variant, nil
}

// ListActiveByAd returns the ad's active variants, highest priority first
func (r *AdVariantRepositoryImpl) ListActiveByAd(ctx context.Context, adID uint) ([]*models.AdVariant, error) {
	var variants []*models.AdVariant
	err := r.getDB(ctx).
		Where("ad_id = ? AND status = ?", adID, models.VariantStatusActive).
		Order("priority DESC, id ASC").
		Find(&variants).Error
	if err != nil {
		return nil, err
	}
	return variants, nil
}
