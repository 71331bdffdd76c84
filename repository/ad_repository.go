package repository

import (
	"context"
	"errors"

	"github.com/amirphl/fast-ads/models"
	"gorm.io/gorm"
)

// AdRepositoryImpl implements the AdRepository interface
type AdRepositoryImpl struct {
	*BaseRepository[models.Ad, models.AdFilter]
}

// NewAdRepository creates a new ad repository
func NewAdRepository(db *gorm.DB) AdRepository {
	return &AdRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Ad, models.AdFilter](db),
	}
}

// ByTenantAndID retrieves an ad with its campaign, scoped to a tenant
func (r *AdRepositoryImpl) ByTenantAndID(ctx context.Context, tenantID, adID uint) (*models.Ad, error) {
	var ad models.Ad
	err := r.getDB(ctx).
		Preload("Campaign").
		Where("tenant_id = ? AND id = ?", tenantID, adID).
		First(&ad).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ad, nil
}

// ListServing returns the tenant's active ads whose campaign is active, with campaign and rules loaded.
// Ads without a campaign are never returned.
func (r *AdRepositoryImpl) ListServing(ctx context.Context, tenantID uint) ([]*models.Ad, error) {
	var ads []*models.Ad
	err := r.getDB(ctx).
		Joins("JOIN ad_campaigns ON ad_campaigns.id = ads.campaign_id AND ad_campaigns.tenant_id = ads.tenant_id").
		Where("ads.tenant_id = ? AND ads.status = ? AND ad_campaigns.status = ?",
			tenantID, models.AdStatusActive, models.CampaignStatusActive).
		Preload("Campaign").
		Preload("Rules", func(db *gorm.DB) *gorm.DB {
			return db.Order("priority DESC, id ASC")
		}).
		Order("ads.id ASC").
		Find(&ads).Error
	if err != nil {
		return nil, err
	}
	return ads, nil
}

// ByFilter retrieves ads based on filter criteria
func (r *AdRepositoryImpl) ByFilter(ctx context.Context, filter models.AdFilter, orderBy string, limit, offset int) ([]*models.Ad, error) {
	query := page(r.applyFilter(r.getDB(ctx), filter), orderBy, limit, offset)

	var ads []*models.Ad
	if err := query.Find(&ads).Error; err != nil {
		return nil, err
	}
	return ads, nil
}

// Count returns the number of ads matching the filter
func (r *AdRepositoryImpl) Count(ctx context.Context, filter models.AdFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.getDB(ctx).Model(&models.Ad{}), filter).Count(&count).Error
	return count, err
}

func (r *AdRepositoryImpl) applyFilter(db *gorm.DB, filter models.AdFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.TenantID != nil {
		db = db.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.CampaignID != nil {
		db = db.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.AdType != nil {
		db = db.Where("ad_type = ?", *filter.AdType)
	}
	return db
}
