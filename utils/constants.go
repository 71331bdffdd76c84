package utils

import (
	"time"
)

// Decision engine defaults
const (
	// DecisionCacheTTL is how long a computed decision is served verbatim (60 seconds)
	DecisionCacheTTL = 60 * time.Second

	// VASTDefaultDurationSeconds is the duration budget used by the VAST endpoint
	VASTDefaultDurationSeconds = 120

	// VASTPlaceholderBreakID is the ad break id used by the VAST endpoint
	VASTPlaceholderBreakID = "vast"

	// StoreTimeout bounds a single cache or database round trip on the decision path
	StoreTimeout = 250 * time.Millisecond

	// DefaultAdMaxImpressions is the ad-level frequency cap when the ad does not configure one
	DefaultAdMaxImpressions = 3

	// DefaultCampaignMaxImpressions is the campaign-level frequency cap when the campaign does not configure one
	DefaultCampaignMaxImpressions = 5

	// DefaultTimeWindow is the frequency cap window when none is configured
	DefaultTimeWindow = "day"

	// DefaultIdentifierType is the viewer identifier type when the caller omits it
	DefaultIdentifierType = "session"
)

// Pod defaults applied when no pod config exists
const (
	DefaultPodMinAds = 1
	DefaultPodMaxAds = 3

	// PodGoodEnoughRatio stops filling once this share of the duration budget is used
	PodGoodEnoughRatio = 0.8
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400

	// MaxTrackingBatchSize caps the number of events accepted per tracking request
	MaxTrackingBatchSize = 500
)
