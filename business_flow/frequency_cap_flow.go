package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/fast-ads/cache"
	"github.com/amirphl/fast-ads/config"
	"github.com/amirphl/fast-ads/logger"
	"github.com/amirphl/fast-ads/models"
	"github.com/amirphl/fast-ads/repository"
	"github.com/amirphl/fast-ads/utils"
	"github.com/sony/gobreaker/v2"
)

// CapRef points at the ad or campaign a cap counts
type CapRef struct {
	TenantID uint
	Subject  models.CapSubject
	ID       uint
}

// AdCapRef is the ad-level cap of ad
func AdCapRef(ad *models.Ad) CapRef {
	return CapRef{TenantID: ad.TenantID, Subject: models.CapSubjectAd, ID: ad.ID}
}

// CampaignCapRef is the campaign-level cap of campaign
func CampaignCapRef(campaign *models.Campaign) CapRef {
	return CapRef{TenantID: campaign.TenantID, Subject: models.CapSubjectCampaign, ID: campaign.ID}
}

// CacheKey is freqcap:{subject}:{id}:{viewer}:{identifier type}:{window}
func (r CapRef) CacheKey(viewer Viewer, window models.TimeWindow) string {
	return fmt.Sprintf("freqcap:%s:%d:%s:%s:%s", r.Subject, r.ID, viewer.Identifier, viewer.Type, window)
}

func (r CapRef) key(viewer Viewer, window models.TimeWindow) models.FrequencyCapKey {
	return models.FrequencyCapKey{
		SubjectType:      r.Subject,
		SubjectID:        r.ID,
		ViewerIdentifier: viewer.Identifier,
		IdentifierType:   viewer.Type,
		TimeWindow:       window,
	}
}

// FrequencyCapFlow enforces per-viewer impression caps. Counting is approximate:
// concurrent impressions of one viewer may be over-counted and the cache may lag the table.
// Store failures never block serving; they answer "allowed".
type FrequencyCapFlow interface {
	CanShow(ctx context.Context, ref CapRef, viewer Viewer, maxImpressions int, window models.TimeWindow) bool
	RecordImpression(ctx context.Context, ref CapRef, viewer Viewer, maxImpressions int, window models.TimeWindow) error

	// CanShowAd checks the ad cap and, when the ad has a campaign, the campaign cap
	CanShowAd(ctx context.Context, ad *models.Ad, viewer Viewer) bool
	// RecordAdImpression counts an impression against the ad and its campaign
	RecordAdImpression(ctx context.Context, ad *models.Ad, viewer Viewer) error
}

// capCacheEntry is the cached counter. WindowEnd lets a stale entry be ignored once the window rolls over.
type capCacheEntry struct {
	Count     int       `json:"count"`
	WindowEnd time.Time `json:"window_end"`
}

type FrequencyCapFlowImpl struct {
	capRepo  repository.FrequencyCapRepository
	cache    cache.Store
	breaker  *gobreaker.CircuitBreaker[*models.FrequencyCap]
	location *time.Location
	timeout  time.Duration

	defaultAdMax       int
	defaultCampaignMax int
	defaultWindow      models.TimeWindow

	log *logger.Logger
	now func() time.Time
}

// NewFrequencyCapFlow creates the frequency cap store. A nil cache store reads the table directly.
func NewFrequencyCapFlow(
	capRepo repository.FrequencyCapRepository,
	store cache.Store,
	decisionCfg config.DecisionConfig,
	breakerCfg config.BreakerConfig,
	location *time.Location,
	log *logger.Logger,
) *FrequencyCapFlowImpl {
	if location == nil {
		location = time.UTC
	}
	timeout := decisionCfg.StoreTimeout
	if timeout <= 0 {
		timeout = utils.StoreTimeout
	}
	adMax := decisionCfg.DefaultAdMaxImpressions
	if adMax <= 0 {
		adMax = utils.DefaultAdMaxImpressions
	}
	campaignMax := decisionCfg.DefaultCampaignImpressions
	if campaignMax <= 0 {
		campaignMax = utils.DefaultCampaignMaxImpressions
	}

	return &FrequencyCapFlowImpl{
		capRepo:            capRepo,
		cache:              store,
		breaker:            newStoreBreaker[*models.FrequencyCap](storeFrequencyCap, breakerCfg, log),
		location:           location,
		timeout:            timeout,
		defaultAdMax:       adMax,
		defaultCampaignMax: campaignMax,
		defaultWindow:      models.ParseTimeWindow(utils.StringOr(decisionCfg.DefaultTimeWindow, utils.DefaultTimeWindow)),
		log:                log,
		now:                utils.UTCNow,
	}
}

// CanShow reports whether the viewer is under maxImpressions for the current window
func (f *FrequencyCapFlowImpl) CanShow(ctx context.Context, ref CapRef, viewer Viewer, maxImpressions int, window models.TimeWindow) bool {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	now := f.now()
	cacheKey := ref.CacheKey(viewer, window)

	if f.cache != nil {
		var entry capCacheEntry
		found, err := cache.GetJSON(ctx, f.cache, cacheKey, &entry)
		if err != nil {
			f.log.Debug("Frequency cap cache read failed", "key", cacheKey, "error", err.Error())
		} else if found && now.Before(entry.WindowEnd) {
			return entry.Count < maxImpressions
		}
	}

	counter, err := f.breaker.Execute(func() (*models.FrequencyCap, error) {
		return f.capRepo.ByKey(ctx, ref.key(viewer, window))
	})
	if err != nil {
		degraded(f.log, storeFrequencyCap, err, "subject", ref.Subject, "subject_id", ref.ID)
		return true
	}
	if counter == nil || !counter.Covers(now) {
		return true
	}

	f.cacheCounter(ctx, cacheKey, counter, window)
	return counter.ImpressionCount < maxImpressions
}

// RecordImpression counts one impression in the window containing now, restarting the
// counter when the stored window has passed, and refreshes the cache entry.
func (f *FrequencyCapFlowImpl) RecordImpression(ctx context.Context, ref CapRef, viewer Viewer, maxImpressions int, window models.TimeWindow) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	now := f.now()
	start, end := window.Bounds(now, f.location)

	counter, err := f.breaker.Execute(func() (*models.FrequencyCap, error) {
		return f.capRepo.RecordImpression(ctx, ref.TenantID, ref.key(viewer, window), maxImpressions, start, end, now)
	})
	if err != nil {
		degraded(f.log, storeFrequencyCap, err, "subject", ref.Subject, "subject_id", ref.ID)
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	f.cacheCounter(ctx, ref.CacheKey(viewer, window), counter, window)
	return nil
}

func (f *FrequencyCapFlowImpl) CanShowAd(ctx context.Context, ad *models.Ad, viewer Viewer) bool {
	maxImpressions, window := ad.Metadata.CapLimits(f.defaultAdMax, f.defaultWindow)
	if !f.CanShow(ctx, AdCapRef(ad), viewer, maxImpressions, window) {
		return false
	}

	if ad.Campaign == nil {
		return true
	}
	maxImpressions, window = ad.Campaign.Metadata.CapLimits(f.defaultCampaignMax, f.defaultWindow)
	return f.CanShow(ctx, CampaignCapRef(ad.Campaign), viewer, maxImpressions, window)
}

func (f *FrequencyCapFlowImpl) RecordAdImpression(ctx context.Context, ad *models.Ad, viewer Viewer) error {
	maxImpressions, window := ad.Metadata.CapLimits(f.defaultAdMax, f.defaultWindow)
	adErr := f.RecordImpression(ctx, AdCapRef(ad), viewer, maxImpressions, window)

	if ad.Campaign == nil {
		return adErr
	}
	maxImpressions, window = ad.Campaign.Metadata.CapLimits(f.defaultCampaignMax, f.defaultWindow)
	campaignErr := f.RecordImpression(ctx, CampaignCapRef(ad.Campaign), viewer, maxImpressions, window)

	if adErr != nil {
		return adErr
	}
	return campaignErr
}

func (f *FrequencyCapFlowImpl) cacheCounter(ctx context.Context, key string, counter *models.FrequencyCap, window models.TimeWindow) {
	if f.cache == nil || counter == nil {
		return
	}
	entry := capCacheEntry{Count: counter.ImpressionCount, WindowEnd: counter.WindowEnd}
	if err := cache.SetJSON(ctx, f.cache, key, entry, window.TTL()); err != nil {
		f.log.Debug("Frequency cap cache write failed", "key", key, "error", err.Error())
	}
}
