package repository

import (
	"context"
	"time"

	"github.com/amirphl/fast-ads/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TrackingEventRepositoryImpl implements TrackingEventRepository
type TrackingEventRepositoryImpl struct {
	*BaseRepository[models.TrackingEvent, models.TrackingEventFilter]
}

func NewTrackingEventRepository(db *gorm.DB) TrackingEventRepository {
	return &TrackingEventRepositoryImpl{BaseRepository: NewBaseRepository[models.TrackingEvent, models.TrackingEventFilter](db)}
}

var timestampColumn = clause.Column{Table: "tracking_events", Name: "timestamp"}

func (r *TrackingEventRepositoryImpl) ByFilter(ctx context.Context, filter models.TrackingEventFilter, orderBy string, limit, offset int) ([]*models.TrackingEvent, error) {
	query := page(r.applyFilter(r.getDB(ctx).Model(&models.TrackingEvent{}), filter), orderBy, limit, offset)
	var rows []*models.TrackingEvent
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *TrackingEventRepositoryImpl) Count(ctx context.Context, filter models.TrackingEventFilter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.getDB(ctx).Model(&models.TrackingEvent{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *TrackingEventRepositoryImpl) EachInRange(ctx context.Context, from, to time.Time, batchSize int, fn func([]*models.TrackingEvent) error) error {
	if batchSize <= 0 {
		batchSize = 500
	}
	var rows []*models.TrackingEvent
	result := r.getDB(ctx).
		Where("? >= ? AND ? < ?", timestampColumn, from.UTC(), timestampColumn, to.UTC()).
		FindInBatches(&rows, batchSize, func(tx *gorm.DB, batch int) error {
			return fn(rows)
		})
	return result.Error
}

func (r *TrackingEventRepositoryImpl) applyFilter(db *gorm.DB, filter models.TrackingEventFilter) *gorm.DB {
	if filter.TenantID != nil {
		db = db.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.AdID != nil {
		db = db.Where("ad_id = ?", *filter.AdID)
	}
	if filter.EventType != nil {
		db = db.Where("event_type = ?", *filter.EventType)
	}
	if filter.SessionID != nil {
		db = db.Where("session_id = ?", *filter.SessionID)
	}
	if filter.From != nil {
		db = db.Where("? >= ?", timestampColumn, filter.From.UTC())
	}
	if filter.To != nil {
		db = db.Where("? < ?", timestampColumn, filter.To.UTC())
	}
	return db
}
