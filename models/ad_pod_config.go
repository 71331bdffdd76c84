package models

import "time"

// FillStrategy describes how hard a pod should be filled
type FillStrategy string

const (
	FillStrategyStrict     FillStrategy = "strict"
	FillStrategyBestEffort FillStrategy = "best_effort"
)

// AdPodConfig constrains pods for a (tenant, channel, position).
// A nil ChannelID is the tenant-wide default for that position.
type AdPodConfig struct {
	ID                 uint         `gorm:"primaryKey" json:"id"`
	TenantID           uint         `gorm:"not null;index:idx_ad_pod_configs_tenant_channel,priority:1" json:"tenant_id"`
	ChannelID          *uint        `gorm:"index:idx_ad_pod_configs_tenant_channel,priority:2" json:"channel_id,omitempty"`
	PositionType       PositionType `gorm:"size:20;not null;index:idx_ad_pod_configs_position_type" json:"position_type"`
	MinAds             int          `gorm:"not null;default:1" json:"min_ads"`
	MaxAds             int          `gorm:"not null;default:3" json:"max_ads"`
	MaxDurationSeconds int          `gorm:"not null;default:120" json:"max_duration_seconds"`
	FillStrategy       FillStrategy `gorm:"size:20;not null;default:'best_effort'" json:"fill_strategy"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          *time.Time   `json:"updated_at,omitempty"`
}

func (AdPodConfig) TableName() string {
	return "ad_pod_configs"
}
