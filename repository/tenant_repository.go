package repository

import (
	"context"
	"errors"

	"github.com/amirphl/fast-ads/models"
	"gorm.io/gorm"
)

// TenantRepositoryImpl implements the TenantRepository interface
type TenantRepositoryImpl struct {
	*BaseRepository[models.Tenant, models.TenantFilter]
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &TenantRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Tenant, models.TenantFilter](db),
	}
}

// BySlug retrieves a tenant by its public slug
func (r *TenantRepositoryImpl) BySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	return r.first(ctx, models.TenantFilter{Slug: &slug})
}

// ByAPIKey retrieves a tenant by its API key
func (r *TenantRepositoryImpl) ByAPIKey(ctx context.Context, apiKey string) (*models.Tenant, error) {
	return r.first(ctx, models.TenantFilter{APIKey: &apiKey})
}

func (r *TenantRepositoryImpl) first(ctx context.Context, filter models.TenantFilter) (*models.Tenant, error) {
	var tenant models.Tenant
	err := r.applyFilter(r.getDB(ctx), filter).First(&tenant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tenant, nil
}

// ByFilter retrieves tenants based on filter criteria
func (r *TenantRepositoryImpl) ByFilter(ctx context.Context, filter models.TenantFilter, orderBy string, limit, offset int) ([]*models.Tenant, error) {
	query := page(r.applyFilter(r.getDB(ctx), filter), orderBy, limit, offset)

	var tenants []*models.Tenant
	if err := query.Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}

// Count returns the number of tenants matching the filter
func (r *TenantRepositoryImpl) Count(ctx context.Context, filter models.TenantFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.getDB(ctx).Model(&models.Tenant{}), filter).Count(&count).Error
	return count, err
}

func (r *TenantRepositoryImpl) applyFilter(db *gorm.DB, filter models.TenantFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.Slug != nil {
		db = db.Where("slug = ?", *filter.Slug)
	}
	if filter.APIKey != nil {
		db = db.Where("api_key = ?", *filter.APIKey)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	return db
}
