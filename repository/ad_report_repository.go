package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/fast-ads/models"
	"gorm.io/gorm"
)

// AdReportRepositoryImpl implements the AdReportRepository interface
type AdReportRepositoryImpl struct {
	*BaseRepository[models.AdReport, models.AdReportFilter]
}

// NewAdReportRepository creates a new report repository
func NewAdReportRepository(db *gorm.DB) AdReportRepository {
	return &AdReportRepositoryImpl{
		BaseRepository: NewBaseRepository[models.AdReport, models.AdReportFilter](db),
	}
}

// ByFilter retrieves report rows based on filter criteria
func (r *AdReportRepositoryImpl) ByFilter(ctx context.Context, filter models.AdReportFilter, orderBy string, limit, offset int) ([]*models.AdReport, error) {
	db := r.getDB(ctx)
	if filter.TenantID != nil {
		db = db.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.AdID != nil {
		db = db.Where("ad_id = ?", *filter.AdID)
	}
	if filter.CampaignID != nil {
		db = db.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.From != nil {
		db = db.Where("report_date >= ?", *filter.From)
	}
	if filter.To != nil {
		db = db.Where("report_date < ?", *filter.To)
	}

	var reports []*models.AdReport
	if err := page(db, orderBy, limit, offset).Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

// ReplaceDay deletes the day's rows for the granularity and inserts reports in one transaction.
// day must be midnight UTC of the report date.
func (r *AdReportRepositoryImpl) ReplaceDay(ctx context.Context, day time.Time, granularity models.ReportGranularity, reports []*models.AdReport) error {
	return WithTransaction(ctx, r.DB, func(txCtx context.Context) error {
		db := r.getDB(txCtx)

		err := db.Where("report_date >= ? AND report_date < ? AND granularity = ?", day, day.AddDate(0, 0, 1), granularity).
			Delete(&models.AdReport{}).Error
		if err != nil {
			return fmt.Errorf("failed to clear reports: %w", err)
		}

		if len(reports) == 0 {
			return nil
		}

		if err := db.CreateInBatches(reports, 100).Error; err != nil {
			return fmt.Errorf("failed to save reports: %w", err)
		}

		return nil
	})
}
