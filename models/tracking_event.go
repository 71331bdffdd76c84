package models

import (
	"time"

	"gorm.io/datatypes"
)

// EventType is a player-side tracking event kind
type EventType string

const (
	EventTypeImpression    EventType = "impression"
	EventTypeStart         EventType = "start"
	EventTypeFirstQuartile EventType = "first_quartile"
	EventTypeMidpoint      EventType = "midpoint"
	EventTypeThirdQuartile EventType = "third_quartile"
	EventTypeComplete      EventType = "complete"
	EventTypeClick         EventType = "click"
	EventTypeError         EventType = "error"
)

// ProgressEventTypes are the events carried as tracking URLs on every line item, in order
var ProgressEventTypes = []EventType{
	EventTypeImpression,
	EventTypeStart,
	EventTypeFirstQuartile,
	EventTypeMidpoint,
	EventTypeThirdQuartile,
	EventTypeComplete,
}

// String returns the string representation of the event type
func (e EventType) String() string {
	return string(e)
}

// Valid checks if the event type is known
func (e EventType) Valid() bool {
	switch e {
	case EventTypeImpression, EventTypeStart, EventTypeFirstQuartile, EventTypeMidpoint,
		EventTypeThirdQuartile, EventTypeComplete, EventTypeClick, EventTypeError:
		return true
	default:
		return false
	}
}

// TrackingEvent is one raw event reported by a player or the stitcher
type TrackingEvent struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	TenantID   uint           `gorm:"not null;index:idx_tracking_events_tenant_timestamp,priority:1" json:"tenant_id"`
	ChannelID  *uint          `gorm:"index:idx_tracking_events_channel_id" json:"channel_id,omitempty"`
	AdID       uint           `gorm:"not null;index:idx_tracking_events_ad_event,priority:1" json:"ad_id"`
	CampaignID *uint          `gorm:"index:idx_tracking_events_campaign_id" json:"campaign_id,omitempty"`
	VariantID  *uint          `gorm:"index:idx_tracking_events_variant_id" json:"variant_id,omitempty"`
	EventType  EventType      `gorm:"size:30;not null;index:idx_tracking_events_ad_event,priority:2" json:"event_type"`
	SessionID  *string        `gorm:"size:128;index:idx_tracking_events_session_id" json:"session_id,omitempty"`
	DeviceType *string        `gorm:"size:50" json:"device_type,omitempty"`
	GeoCountry *string        `gorm:"size:2" json:"geo_country,omitempty"`
	IPAddress  *string        `gorm:"column:ip_address;size:64" json:"ip_address,omitempty"`
	UserAgent  *string        `gorm:"type:text" json:"user_agent,omitempty"`
	Timestamp  time.Time      `gorm:"not null;index:idx_tracking_events_tenant_timestamp,priority:2" json:"timestamp"`
	Metadata   datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// TableName returns the table name for TrackingEvent
func (TrackingEvent) TableName() string { return "tracking_events" }

// TrackingEventFilter represents filter criteria for tracking event queries
type TrackingEventFilter struct {
	TenantID  *uint
	AdID      *uint
	EventType *EventType
	SessionID *string
	From      *time.Time
	To        *time.Time
}
