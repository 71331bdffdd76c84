package models

import (
	"time"

	"github.com/amirphl/fast-ads/utils"
	"gorm.io/gorm"
)

// AbTestAssignment pins a viewer to a variant of an ad.
// Rows are append-only; (ad_id, viewer_identifier, identifier_type) is unique.
type AbTestAssignment struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	TenantID         uint      `gorm:"not null;index:idx_ab_test_assignments_tenant_ad_variant,priority:1" json:"tenant_id"`
	AdID             uint      `gorm:"not null;uniqueIndex:uk_ab_test_assignments_viewer,priority:1;index:idx_ab_test_assignments_tenant_ad_variant,priority:2" json:"ad_id"`
	VariantID        uint      `gorm:"not null;index:idx_ab_test_assignments_tenant_ad_variant,priority:3" json:"variant_id"`
	ViewerIdentifier string    `gorm:"size:255;not null;uniqueIndex:uk_ab_test_assignments_viewer,priority:2" json:"viewer_identifier"`
	IdentifierType   string    `gorm:"size:50;not null;uniqueIndex:uk_ab_test_assignments_viewer,priority:3" json:"identifier_type"`
	AssignedAt       time.Time `gorm:"not null" json:"assigned_at"`
	CreatedAt        time.Time `json:"created_at"`

	// Relations
	Variant *AdVariant `gorm:"foreignKey:VariantID;references:ID" json:"variant,omitempty"`
}

func (AbTestAssignment) TableName() string {
	return "ab_test_assignments"
}

// BeforeCreate is called before creating a new record
func (a *AbTestAssignment) BeforeCreate(tx *gorm.DB) error {
	if a.AssignedAt.IsZero() {
		a.AssignedAt = utils.UTCNow()
	}
	return nil
}
