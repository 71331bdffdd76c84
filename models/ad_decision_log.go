package models

import (
	"time"

	"gorm.io/datatypes"
)

// AdDecisionLog records one decision served, for auditing fill and latency
type AdDecisionLog struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	TenantID       uint           `gorm:"not null;index:idx_ad_decision_logs_tenant_created,priority:1" json:"tenant_id"`
	ChannelID      uint           `gorm:"not null;index:idx_ad_decision_logs_channel_id" json:"channel_id"`
	AdBreakID      string         `gorm:"size:255;not null" json:"ad_break_id"`
	Position       PositionType   `gorm:"size:20;not null" json:"position"`
	RequestGeo     *string        `gorm:"size:2" json:"request_geo,omitempty"`
	RequestDevice  *string        `gorm:"size:100" json:"request_device,omitempty"`
	AdsSelected    datatypes.JSON `gorm:"type:jsonb" json:"ads_selected"`
	PodID          string         `gorm:"size:64;not null" json:"pod_id"`
	DecisionTimeMS int64          `gorm:"column:decision_time_ms;not null;default:0" json:"decision_time_ms"`
	CacheHit       bool           `gorm:"not null;default:false" json:"cache_hit"`
	CreatedAt      time.Time      `gorm:"index:idx_ad_decision_logs_tenant_created,priority:2" json:"created_at"`
}

func (AdDecisionLog) TableName() string {
	return "ad_decision_logs"
}
