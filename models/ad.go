package models

import (
	"strings"
	"time"

	"github.com/amirphl/fast-ads/utils"
	"gorm.io/gorm"
)

// AdStatus represents whether an ad is part of the inventory
type AdStatus string

const (
	AdStatusActive   AdStatus = "active"
	AdStatusInactive AdStatus = "inactive"
)

// AdType is the IAB creative kind
type AdType string

const (
	AdTypeLinear    AdType = "linear"
	AdTypeNonLinear AdType = "non-linear"
	AdTypeCompanion AdType = "companion"
)

// AdSource tells where the creative media lives
type AdSource string

const (
	AdSourceVASTURL       AdSource = "vast_url"
	AdSourceUploadedVideo AdSource = "uploaded_video"
)

// Ad is the unit of inventory
type Ad struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	TenantID        uint              `gorm:"not null;index:idx_ads_tenant_id" json:"tenant_id"`
	CampaignID      *uint             `gorm:"index:idx_ads_campaign_id" json:"campaign_id,omitempty"`
	Name            string            `gorm:"size:255;not null" json:"name"`
	VastURL         string            `gorm:"column:vast_url;size:512;not null" json:"vast_url"`
	VideoFilePath   *string           `gorm:"size:512" json:"video_file_path,omitempty"`
	AdSource        AdSource          `gorm:"size:20;not null;default:'vast_url'" json:"ad_source"`
	DurationSeconds int               `gorm:"not null" json:"duration_seconds"`
	AdType          AdType            `gorm:"size:20;not null;default:'linear'" json:"ad_type"`
	ClickThroughURL *string           `gorm:"size:512" json:"click_through_url,omitempty"`
	Status          AdStatus          `gorm:"size:20;not null;index:idx_ads_status" json:"status"`
	Metadata        InventoryMetadata `gorm:"type:jsonb" json:"metadata"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       *time.Time        `json:"updated_at,omitempty"`

	// Relations
	Campaign *Campaign   `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
	Rules    []AdRule    `gorm:"foreignKey:AdID" json:"rules,omitempty"`
	Variants []AdVariant `gorm:"foreignKey:AdID" json:"variants,omitempty"`
}

func (Ad) TableName() string {
	return "ads"
}

// BeforeCreate is called before creating a new record
func (a *Ad) BeforeCreate(tx *gorm.DB) error {
	if a.Status == "" {
		a.Status = AdStatusActive
	}
	if a.AdType == "" {
		a.AdType = AdTypeLinear
	}
	if a.AdSource == "" {
		a.AdSource = AdSourceVASTURL
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = utils.UTCNow()
	}
	return nil
}

// MediaURL resolves the creative location; uploaded videos are served from mediaBaseURL
func (a *Ad) MediaURL(mediaBaseURL string) string {
	if a.AdSource == AdSourceUploadedVideo && a.VideoFilePath != nil && *a.VideoFilePath != "" {
		return JoinMediaURL(mediaBaseURL, *a.VideoFilePath)
	}
	return a.VastURL
}

// JoinMediaURL joins a base URL and a stored file path unless the path is already absolute
func JoinMediaURL(base, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") || base == "" {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// AdFilter represents filter criteria for ad queries
type AdFilter struct {
	ID         *uint
	TenantID   *uint
	CampaignID *uint
	Status     *AdStatus
	AdType     *AdType
}
