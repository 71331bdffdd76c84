package models

import (
	"time"

	"github.com/amirphl/fast-ads/utils"
	"gorm.io/gorm"
)

// ChannelStatus represents whether a channel is served
type ChannelStatus string

const (
	ChannelStatusActive   ChannelStatus = "active"
	ChannelStatusInactive ChannelStatus = "inactive"
)

// AdBreakStrategy tells the stitcher how breaks are detected on a channel
type AdBreakStrategy string

const (
	AdBreakStrategySCTE35 AdBreakStrategy = "scte35"
	AdBreakStrategyStatic AdBreakStrategy = "static"
	AdBreakStrategyHybrid AdBreakStrategy = "hybrid"
)

// Channel is a content stream under a tenant.
// Slug is unique per tenant.
type Channel struct {
	ID                     uint            `gorm:"primaryKey" json:"id"`
	TenantID               uint            `gorm:"not null;uniqueIndex:uk_channels_tenant_slug,priority:1;index:idx_channels_tenant_id" json:"tenant_id"`
	Name                   string          `gorm:"size:255;not null" json:"name"`
	Slug                   string          `gorm:"size:255;not null;uniqueIndex:uk_channels_tenant_slug,priority:2" json:"slug"`
	Description            *string         `gorm:"type:text" json:"description,omitempty"`
	HLSManifestURL         string          `gorm:"column:hls_manifest_url;size:512;not null" json:"hls_manifest_url"`
	AdBreakStrategy        AdBreakStrategy `gorm:"size:20;not null" json:"ad_break_strategy"`
	AdBreakIntervalSeconds int             `gorm:"not null;default:360" json:"ad_break_interval_seconds"`
	EnablePreRoll          bool            `gorm:"not null;default:false" json:"enable_pre_roll"`
	Status                 ChannelStatus   `gorm:"size:20;not null;index:idx_channels_status" json:"status"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              *time.Time      `json:"updated_at,omitempty"`

	// Relations
	Tenant   *Tenant   `gorm:"foreignKey:TenantID;references:ID" json:"tenant,omitempty"`
	AdBreaks []AdBreak `gorm:"foreignKey:ChannelID" json:"ad_breaks,omitempty"`
}

func (Channel) TableName() string {
	return "channels"
}

// BeforeCreate is called before creating a new record
func (c *Channel) BeforeCreate(tx *gorm.DB) error {
	if c.Status == "" {
		c.Status = ChannelStatusActive
	}
	if c.AdBreakStrategy == "" {
		c.AdBreakStrategy = AdBreakStrategyStatic
	}
	if c.AdBreakIntervalSeconds == 0 {
		c.AdBreakIntervalSeconds = 360
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// ChannelFilter represents filter criteria for channel queries
type ChannelFilter struct {
	ID       *uint
	TenantID *uint
	Slug     *string
	Status   *ChannelStatus
}
