package models

import "time"

// VariantStatus represents whether a variant takes part in new assignments
type VariantStatus string

const (
	VariantStatusActive   VariantStatus = "active"
	VariantStatusPaused   VariantStatus = "paused"
	VariantStatusArchived VariantStatus = "archived"
)

// AdVariant is an alternative creative of a parent ad.
// TrafficPercentage values of sibling variants need not sum to 100.
type AdVariant struct {
	ID                uint          `gorm:"primaryKey" json:"id"`
	TenantID          uint          `gorm:"not null;index:idx_ad_variants_tenant_ad_status,priority:1" json:"tenant_id"`
	AdID              uint          `gorm:"not null;index:idx_ad_variants_tenant_ad_status,priority:2;index:idx_ad_variants_ad_priority,priority:1" json:"ad_id"`
	Name              string        `gorm:"size:255;not null" json:"name"`
	Description       *string       `gorm:"type:text" json:"description,omitempty"`
	VastURL           *string       `gorm:"column:vast_url;size:512" json:"vast_url,omitempty"`
	VideoFilePath     *string       `gorm:"size:512" json:"video_file_path,omitempty"`
	DurationSeconds   *int          `json:"duration_seconds,omitempty"`
	ClickThroughURL   *string       `gorm:"size:512" json:"click_through_url,omitempty"`
	TrafficPercentage int           `gorm:"not null;default:50" json:"traffic_percentage"`
	Priority          int           `gorm:"not null;default:0;index:idx_ad_variants_ad_priority,priority:2" json:"priority"`
	Status            VariantStatus `gorm:"size:20;not null;default:'active';index:idx_ad_variants_tenant_ad_status,priority:3" json:"status"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         *time.Time    `json:"updated_at,omitempty"`
}

func (AdVariant) TableName() string {
	return "ad_variants"
}
