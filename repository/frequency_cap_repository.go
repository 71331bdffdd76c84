package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/fast-ads/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FrequencyCapRepositoryImpl implements the FrequencyCapRepository interface
type FrequencyCapRepositoryImpl struct {
	*BaseRepository[models.FrequencyCap, any]
}

// NewFrequencyCapRepository creates a new frequency cap repository
func NewFrequencyCapRepository(db *gorm.DB) FrequencyCapRepository {
	return &FrequencyCapRepositoryImpl{
		BaseRepository: NewBaseRepository[models.FrequencyCap, any](db),
	}
}

// ByKey retrieves the counter row for a key, whether or not its window is current
func (r *FrequencyCapRepositoryImpl) ByKey(ctx context.Context, key models.FrequencyCapKey) (*models.FrequencyCap, error) {
	var row models.FrequencyCap
	err := r.getDB(ctx).
		Where("subject_type = ? AND subject_id = ? AND viewer_identifier = ? AND identifier_type = ? AND time_window = ?",
			key.SubjectType, key.SubjectID, key.ViewerIdentifier, key.IdentifierType, key.TimeWindow).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// RecordImpression upserts the counter and reads it back inside one transaction.
// Concurrent callers outside that transaction may still interleave on databases
// without row-level isolation; the returned count is then approximate.
func (r *FrequencyCapRepositoryImpl) RecordImpression(
	ctx context.Context,
	tenantID uint,
	key models.FrequencyCapKey,
	maxImpressions int,
	start, end, now time.Time,
) (*models.FrequencyCap, error) {
	start, end, now = start.UTC(), end.UTC(), now.UTC()
	row := &models.FrequencyCap{
		TenantID:         tenantID,
		SubjectType:      key.SubjectType,
		SubjectID:        key.SubjectID,
		ViewerIdentifier: key.ViewerIdentifier,
		IdentifierType:   key.IdentifierType,
		TimeWindow:       key.TimeWindow,
		ImpressionCount:  1,
		MaxImpressions:   maxImpressions,
		WindowStart:      start,
		WindowEnd:        end,
		CreatedAt:        now,
	}

	var stored models.FrequencyCap
	err := WithTransaction(ctx, r.DB, func(txCtx context.Context) error {
		db := r.getDB(txCtx)

		const expired = "frequency_caps.window_end <= ? OR frequency_caps.window_start > ?"
		err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "subject_type"}, {Name: "subject_id"}, {Name: "viewer_identifier"},
				{Name: "identifier_type"}, {Name: "time_window"},
			},
			DoUpdates: clause.Set{
				{Column: clause.Column{Name: "impression_count"}, Value: gorm.Expr("CASE WHEN "+expired+" THEN 1 ELSE frequency_caps.impression_count + 1 END", now, now)},
				{Column: clause.Column{Name: "window_start"}, Value: gorm.Expr("CASE WHEN "+expired+" THEN ? ELSE frequency_caps.window_start END", now, now, start)},
				{Column: clause.Column{Name: "window_end"}, Value: gorm.Expr("CASE WHEN "+expired+" THEN ? ELSE frequency_caps.window_end END", now, now, end)},
				{Column: clause.Column{Name: "max_impressions"}, Value: maxImpressions},
				{Column: clause.Column{Name: "updated_at"}, Value: now},
			},
		}).Create(row).Error
		if err != nil {
			return fmt.Errorf("failed to upsert frequency cap: %w", err)
		}

		err = db.Where("subject_type = ? AND subject_id = ? AND viewer_identifier = ? AND identifier_type = ? AND time_window = ?",
			key.SubjectType, key.SubjectID, key.ViewerIdentifier, key.IdentifierType, key.TimeWindow).
			First(&stored).Error
		if err != nil {
			return fmt.Errorf("failed to read frequency cap: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &stored, nil
}
