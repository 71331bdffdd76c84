package models

import "time"

// AdBreakStatus represents whether a scheduled break is emitted
type AdBreakStatus string

const (
	AdBreakStatusActive   AdBreakStatus = "active"
	AdBreakStatusInactive AdBreakStatus = "inactive"
)

// AdBreak is a scheduled ad slot on a channel, used to build VMAP documents
type AdBreak struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	ChannelID       uint          `gorm:"not null;index:idx_ad_breaks_channel_id" json:"channel_id"`
	PositionType    PositionType  `gorm:"size:20;not null;index:idx_ad_breaks_position,priority:1" json:"position_type"`
	OffsetSeconds   int           `gorm:"not null;index:idx_ad_breaks_position,priority:2" json:"offset_seconds"`
	DurationSeconds int           `gorm:"not null" json:"duration_seconds"`
	Priority        int           `gorm:"not null;default:0" json:"priority"`
	Status          AdBreakStatus `gorm:"size:20;not null;default:'active'" json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       *time.Time    `json:"updated_at,omitempty"`
}

func (AdBreak) TableName() string {
	return "ad_breaks"
}

// AdBreakFilter represents filter criteria for ad break queries
type AdBreakFilter struct {
	ID           *uint
	ChannelID    *uint
	PositionType *PositionType
	Status       *AdBreakStatus
}
