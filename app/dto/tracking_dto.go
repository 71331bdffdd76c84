package dto

import "time"

// TrackingEventRequest is one player or stitcher event.
// CampaignID is filled from the ad when omitted.
type TrackingEventRequest struct {
	TenantID   uint           `json:"tenant_id" validate:"required,gt=0"`
	ChannelID  *uint          `json:"channel_id,omitempty" validate:"omitempty,gt=0"`
	AdID       uint           `json:"ad_id" validate:"required,gt=0"`
	CampaignID *uint          `json:"campaign_id,omitempty" validate:"omitempty,gt=0"`
	VariantID  *uint          `json:"variant_id,omitempty" validate:"omitempty,gt=0"`
	EventType  string         `json:"event_type" validate:"required,oneof=impression start first_quartile midpoint third_quartile complete click error"`
	SessionID  *string        `json:"session_id,omitempty" validate:"omitempty,max=128"`
	DeviceType *string        `json:"device_type,omitempty" validate:"omitempty,max=50"`
	GeoCountry *string        `json:"geo_country,omitempty" validate:"omitempty,len=2"`
	IPAddress  *string        `json:"ip_address,omitempty" validate:"omitempty,ip"`
	UserAgent  *string        `json:"user_agent,omitempty" validate:"omitempty,max=1024"`
	Timestamp  *time.Time     `json:"timestamp,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// TrackEventsRequest is a batch of events. Events are validated and recorded independently.
type TrackEventsRequest struct {
	Events []TrackingEventRequest `json:"events" validate:"required,min=1,max=500"`
}

// TrackingEventError reports why the event at Index was not recorded
type TrackingEventError struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// TrackEventsResponse summarizes a batch
type TrackEventsResponse struct {
	Processed int                  `json:"processed"`
	Failed    int                  `json:"failed"`
	Errors    []TrackingEventError `json:"errors,omitempty"`
}

// TrackingPixelRequest is the query of a tracking URL fired by a player
type TrackingPixelRequest struct {
	AdID      uint   `query:"ad_id" validate:"required,gt=0"`
	EventType string `query:"event_type" validate:"required,oneof=impression start first_quartile midpoint third_quartile complete click error"`
	VariantID uint   `query:"variant_id"`
	ChannelID uint   `query:"channel_id"`
	SessionID string `query:"session_id" validate:"omitempty,max=128"`
	Token     string `query:"t"`
}
