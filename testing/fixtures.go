package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/amirphl/fast-ads/models"
	"github.com/amirphl/fast-ads/utils"
	"github.com/google/uuid"
	"github.com/goccy/go-json"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestTenant creates an active tenant with a random slug and API key
func (tf *TestFixtures) CreateTestTenant() (*models.Tenant, error) {
	suffix := rand.Intn(100000000)
	tenant := &models.Tenant{
		Name:      fmt.Sprintf("Tenant %d", suffix),
		Slug:      fmt.Sprintf("tenant-%d", suffix),
		APIKey:    uuid.NewString(),
		APISecret: uuid.NewString(),
		Status:    models.TenantStatusActive,
	}

	if err := tf.DB.DB.Create(tenant).Error; err != nil {
		return nil, fmt.Errorf("failed to create test tenant: %w", err)
	}
	return tenant, nil
}

// CreateTestChannel creates an active channel under tenant
func (tf *TestFixtures) CreateTestChannel(tenantID uint, slug string) (*models.Channel, error) {
	channel := &models.Channel{
		TenantID:       tenantID,
		Name:           "Channel " + slug,
		Slug:           slug,
		HLSManifestURL: fmt.Sprintf("https://cdn.example.com/%s/master.m3u8", slug),
	}

	if err := tf.DB.DB.Create(channel).Error; err != nil {
		return nil, fmt.Errorf("failed to create test channel: %w", err)
	}
	return channel, nil
}

// CreateTestAdBreak schedules a break on channel
func (tf *TestFixtures) CreateTestAdBreak(channelID uint, position models.PositionType, offsetSeconds, durationSeconds int) (*models.AdBreak, error) {
	adBreak := &models.AdBreak{
		ChannelID:       channelID,
		PositionType:    position,
		OffsetSeconds:   offsetSeconds,
		DurationSeconds: durationSeconds,
		Status:          models.AdBreakStatusActive,
		CreatedAt:       utils.UTCNow(),
	}

	if err := tf.DB.DB.Create(adBreak).Error; err != nil {
		return nil, fmt.Errorf("failed to create test ad break: %w", err)
	}
	return adBreak, nil
}

// CreateTestCampaign creates a campaign running from yesterday to next month
func (tf *TestFixtures) CreateTestCampaign(tenantID uint, status models.CampaignStatus, priority int) (*models.Campaign, error) {
	now := utils.UTCNow()
	campaign := &models.Campaign{
		TenantID:  tenantID,
		Name:      fmt.Sprintf("Campaign p%d", priority),
		StartDate: now.Add(-24 * time.Hour),
		EndDate:   now.AddDate(0, 1, 0),
		Status:    status,
		Priority:  priority,
	}

	if err := tf.DB.DB.Create(campaign).Error; err != nil {
		return nil, fmt.Errorf("failed to create test campaign: %w", err)
	}
	return campaign, nil
}

// CreateTestAd creates an active linear ad. A zero campaignID leaves the ad without a campaign.
func (tf *TestFixtures) CreateTestAd(tenantID, campaignID uint, name string, durationSeconds int) (*models.Ad, error) {
	ad := &models.Ad{
		TenantID:        tenantID,
		Name:            name,
		VastURL:         fmt.Sprintf("https://ads.example.com/%s.mp4", name),
		DurationSeconds: durationSeconds,
		Status:          models.AdStatusActive,
	}
	if campaignID != 0 {
		ad.CampaignID = &campaignID
	}

	if err := tf.DB.DB.Create(ad).Error; err != nil {
		return nil, fmt.Errorf("failed to create test ad: %w", err)
	}
	return ad, nil
}

// CreateTestRule attaches a rule to ad. Non-string values are stored JSON encoded.
func (tf *TestFixtures) CreateTestRule(adID uint, ruleType models.RuleType, operator models.RuleOperator, value any) (*models.AdRule, error) {
	ruleValue, ok := value.(string)
	if !ok {
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode rule value: %w", err)
		}
		ruleValue = string(encoded)
	}

	rule := &models.AdRule{
		AdID:         adID,
		RuleType:     ruleType,
		RuleOperator: operator,
		RuleValue:    ruleValue,
		CreatedAt:    utils.UTCNow(),
	}

	if err := tf.DB.DB.Create(rule).Error; err != nil {
		return nil, fmt.Errorf("failed to create test rule: %w", err)
	}
	return rule, nil
}

// CreateTestPodConfig creates pod constraints. A nil channelID makes it the tenant default.
func (tf *TestFixtures) CreateTestPodConfig(tenantID uint, channelID *uint, position models.PositionType, minAds, maxAds, maxDuration int, strategy models.FillStrategy) (*models.AdPodConfig, error) {
	cfg := &models.AdPodConfig{
		TenantID:           tenantID,
		ChannelID:          channelID,
		PositionType:       position,
		MinAds:             minAds,
		MaxAds:             maxAds,
		MaxDurationSeconds: maxDuration,
		FillStrategy:       strategy,
		CreatedAt:          utils.UTCNow(),
	}

	if err := tf.DB.DB.Create(cfg).Error; err != nil {
		return nil, fmt.Errorf("failed to create test pod config: %w", err)
	}
	return cfg, nil
}

// CreateTestVariant creates an active variant of ad with its own media URL
func (tf *TestFixtures) CreateTestVariant(ad *models.Ad, name string, trafficPercentage, priority int) (*models.AdVariant, error) {
	variant := &models.AdVariant{
		TenantID:          ad.TenantID,
		AdID:              ad.ID,
		Name:              name,
		VastURL:           utils.ToPtr(fmt.Sprintf("https://ads.example.com/%s/%s.mp4", ad.Name, name)),
		TrafficPercentage: trafficPercentage,
		Priority:          priority,
		Status:            models.VariantStatusActive,
		CreatedAt:         utils.UTCNow(),
	}

	if err := tf.DB.DB.Create(variant).Error; err != nil {
		return nil, fmt.Errorf("failed to create test variant: %w", err)
	}
	return variant, nil
}

// CreateTestTrackingEvent stores a raw event at ts
func (tf *TestFixtures) CreateTestTrackingEvent(ad *models.Ad, eventType models.EventType, sessionID string, ts time.Time) (*models.TrackingEvent, error) {
	event := &models.TrackingEvent{
		TenantID:   ad.TenantID,
		AdID:       ad.ID,
		CampaignID: ad.CampaignID,
		EventType:  eventType,
		Timestamp:  ts.UTC(),
		CreatedAt:  utils.UTCNow(),
	}
	if sessionID != "" {
		event.SessionID = &sessionID
	}

	if err := tf.DB.DB.Create(event).Error; err != nil {
		return nil, fmt.Errorf("failed to create test tracking event: %w", err)
	}
	return event, nil
}
