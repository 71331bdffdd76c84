package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/fast-ads/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AbTestAssignmentRepositoryImpl implements the AbTestAssignmentRepository interface
type AbTestAssignmentRepositoryImpl struct {
	*BaseRepository[models.AbTestAssignment, any]
}

// NewAbTestAssignmentRepository creates a new assignment repository
func NewAbTestAssignmentRepository(db *gorm.DB) AbTestAssignmentRepository {
	return &AbTestAssignmentRepositoryImpl{
		BaseRepository: NewBaseRepository[models.AbTestAssignment, any](db),
	}
}

// ByViewer retrieves the sticky assignment with its variant, whatever the variant's status
func (r *AbTestAssignmentRepositoryImpl) ByViewer(ctx context.Context, adID uint, viewerIdentifier, identifierType string) (*models.AbTestAssignment, error) {
	var assignment models.AbTestAssignment
	err := r.getDB(ctx).
		Preload("Variant").
		Where("ad_id = ? AND viewer_identifier = ? AND identifier_type = ?", adID, viewerIdentifier, identifierType).
		First(&assignment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &assignment, nil
}

// CreateIfAbsent inserts the assignment relying on the (ad_id, viewer_identifier, identifier_type)
// unique index. A conflicting concurrent insert is reported as false, not as an error.
func (r *AbTestAssignmentRepositoryImpl) CreateIfAbsent(ctx context.Context, assignment *models.AbTestAssignment) (bool, error) {
	result := r.getDB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ad_id"}, {Name: "viewer_identifier"}, {Name: "identifier_type"}},
			DoNothing: true,
		}).
		Create(assignment)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create assignment: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// CountByAd counts the assignments of an ad
func (r *AbTestAssignmentRepositoryImpl) CountByAd(ctx context.Context, adID uint) (int64, error) {
	var count int64
	err := r.getDB(ctx).Model(&models.AbTestAssignment{}).Where("ad_id = ?", adID).Count(&count).Error
	return count, err
}
