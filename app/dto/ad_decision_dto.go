package dto

// AdDecisionRequest asks for the ads of one ad break.
// Geo is an ISO 3166-1 alpha-2 code; viewer fields enable frequency capping and A/B assignment.
type AdDecisionRequest struct {
	TenantID         uint    `json:"tenant_id" validate:"required,gt=0"`
	Channel          string  `json:"channel" validate:"required,max=255"`
	AdBreakID        string  `json:"ad_break_id" validate:"required,max=255"`
	Position         string  `json:"position" validate:"required,oneof=pre-roll mid-roll post-roll"`
	DurationSeconds  int     `json:"duration_seconds" validate:"required,min=1,max=600"`
	Geo              *string `json:"geo,omitempty" validate:"omitempty,len=2,alpha"`
	Device           *string `json:"device,omitempty" validate:"omitempty,max=100"`
	ViewerIdentifier *string `json:"viewer_identifier,omitempty" validate:"omitempty,max=255"`
	IdentifierType   *string `json:"identifier_type,omitempty" validate:"omitempty,oneof=session device user"`
}

// TrackingURLs are the beacons a player fires for one line item
type TrackingURLs struct {
	Impression    string `json:"impression"`
	Start         string `json:"start"`
	FirstQuartile string `json:"first_quartile"`
	Midpoint      string `json:"midpoint"`
	ThirdQuartile string `json:"third_quartile"`
	Complete      string `json:"complete"`
	Click         string `json:"click,omitempty"`
}

// DecisionAdItem is one ad of a pod.
// When a variant was applied AdID is the variant id and ParentAdID the original ad.
type DecisionAdItem struct {
	AdID            uint         `json:"ad_id"`
	VariantID       *uint        `json:"variant_id"`
	ParentAdID      *uint        `json:"parent_ad_id"`
	CampaignID      *uint        `json:"campaign_id,omitempty"`
	Title           string       `json:"title,omitempty"`
	VastURL         string       `json:"vast_url"`
	DurationSeconds int          `json:"duration_seconds"`
	AdType          string       `json:"ad_type"`
	ClickThroughURL *string      `json:"click_through_url"`
	TrackingURLs    TrackingURLs `json:"tracking_urls"`
}

// AdDecisionResponse is the pod chosen for an ad break
type AdDecisionResponse struct {
	Ads                  []DecisionAdItem `json:"ads"`
	TotalDurationSeconds int              `json:"total_duration_seconds"`
	PodID                string           `json:"pod_id"`
}

// AdTagRequest carries the query of the VAST and VMAP endpoints
type AdTagRequest struct {
	Position         string `query:"position" validate:"omitempty,oneof=pre-roll mid-roll post-roll"`
	Geo              string `query:"geo" validate:"omitempty,len=2,alpha"`
	Device           string `query:"device" validate:"omitempty,max=100"`
	ViewerIdentifier string `query:"viewer_identifier" validate:"omitempty,max=255"`
	IdentifierType   string `query:"identifier_type" validate:"omitempty,oneof=session device user"`
}
