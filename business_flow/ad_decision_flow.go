package businessflow

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/fast-ads/app/dto"
	"github.com/amirphl/fast-ads/app/services"
	"github.com/amirphl/fast-ads/cache"
	"github.com/amirphl/fast-ads/config"
	"github.com/amirphl/fast-ads/logger"
	"github.com/amirphl/fast-ads/models"
	"github.com/amirphl/fast-ads/observability"
	"github.com/amirphl/fast-ads/repository"
	"github.com/amirphl/fast-ads/utils"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
)

// TrackingPath is where players send tracking beacons
const TrackingPath = "/api/v1/tracking/events"

const anySignal = "any"

// AdDecisionFlow handles ad decisions for ad breaks
type AdDecisionFlow interface {
	// Decide validates a decision request of the authenticated tenant and fills the break
	Decide(ctx context.Context, tenant *models.Tenant, req *dto.AdDecisionRequest) (*dto.AdDecisionResponse, error)
	// GetAdsForBreak fills a break of an already resolved tenant and channel
	GetAdsForBreak(ctx context.Context, br BreakRequest) (*dto.AdDecisionResponse, error)
	// Drain waits for pending decision log writes
	Drain(ctx context.Context) error
}

// BreakRequest is one ad break to fill. A nil Viewer skips frequency caps and A/B variants.
type BreakRequest struct {
	Tenant          *models.Tenant
	Channel         *models.Channel
	AdBreakID       string
	Position        models.PositionType
	DurationSeconds int
	Geo             string
	Device          string
	Viewer          *Viewer
}

// CacheKey is ad_decision:{tenant}:{channel}:{break}:{position}:{geo|any}:{device|any}.
// The viewer is not part of the key.
func (br BreakRequest) CacheKey() string {
	return fmt.Sprintf("ad_decision:%d:%d:%s:%s:%s:%s",
		br.Tenant.ID, br.Channel.ID, br.AdBreakID, br.Position,
		utils.StringOr(br.Geo, anySignal), utils.StringOr(br.Device, anySignal))
}

// AdDecisionFlowImpl implements the decision orchestrator
type AdDecisionFlowImpl struct {
	channelRepo     repository.ChannelRepository
	podConfigRepo   repository.AdPodConfigRepository
	decisionLogRepo repository.AdDecisionLogRepository
	eligibility     EligibilityResolver
	frequencyCaps   FrequencyCapFlow
	abTests         AbTestFlow
	decisionCache   cache.Store
	beacons         services.BeaconTokenService

	cacheTTL      time.Duration
	storeTimeout  time.Duration
	publicBaseURL string
	mediaBaseURL  string
	logDecisions  bool

	log      *logger.Logger
	pending  sync.WaitGroup
	newPodID func() string
}

// NewAdDecisionFlow creates the decision orchestrator. decisionCache and beacons may be nil.
func NewAdDecisionFlow(
	channelRepo repository.ChannelRepository,
	podConfigRepo repository.AdPodConfigRepository,
	decisionLogRepo repository.AdDecisionLogRepository,
	eligibility EligibilityResolver,
	frequencyCaps FrequencyCapFlow,
	abTests AbTestFlow,
	decisionCache cache.Store,
	beacons services.BeaconTokenService,
	cfg config.DecisionConfig,
	log *logger.Logger,
) *AdDecisionFlowImpl {
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = utils.DecisionCacheTTL
	}
	storeTimeout := cfg.StoreTimeout
	if storeTimeout <= 0 {
		storeTimeout = utils.StoreTimeout
	}

	return &AdDecisionFlowImpl{
		channelRepo:     channelRepo,
		podConfigRepo:   podConfigRepo,
		decisionLogRepo: decisionLogRepo,
		eligibility:     eligibility,
		frequencyCaps:   frequencyCaps,
		abTests:         abTests,
		decisionCache:   decisionCache,
		beacons:         beacons,
		cacheTTL:        cacheTTL,
		storeTimeout:    storeTimeout,
		publicBaseURL:   strings.TrimRight(cfg.PublicBaseURL, "/"),
		mediaBaseURL:    cfg.MediaBaseURL,
		logDecisions:    cfg.DecisionLogEnabled && decisionLogRepo != nil,
		log:             log,
		newPodID:        func() string { return "pod_" + uuid.NewString() },
	}
}

func (f *AdDecisionFlowImpl) Decide(ctx context.Context, tenant *models.Tenant, req *dto.AdDecisionRequest) (resp *dto.AdDecisionResponse, err error) {
	defer func() {
		if err != nil {
			err = NewBusinessError("AD_DECISION_FAILED", "Ad decision failed", err)
		}
	}()

	if !tenant.IsActive() {
		return nil, ErrTenantInactive
	}
	if req.TenantID != tenant.ID {
		return nil, fmt.Errorf("%w: tenant %d is not the authenticated tenant", ErrInvalidAPIKey, req.TenantID)
	}
	position := models.PositionType(req.Position)
	if !position.Valid() {
		return nil, ErrInvalidPosition
	}
	if req.DurationSeconds <= 0 {
		return nil, ErrInvalidDuration
	}

	channel, err := f.channelRepo.BySlug(ctx, tenant.ID, req.Channel)
	if err != nil {
		return nil, err
	}
	if channel == nil || channel.Status != models.ChannelStatusActive {
		return nil, ErrChannelNotFound
	}

	br := BreakRequest{
		Tenant:          tenant,
		Channel:         channel,
		AdBreakID:       req.AdBreakID,
		Position:        position,
		DurationSeconds: req.DurationSeconds,
		Geo:             utils.Deref(req.Geo),
		Device:          utils.Deref(req.Device),
		Viewer:          NewViewer(utils.Deref(req.ViewerIdentifier), utils.Deref(req.IdentifierType)),
	}

	resp, err = f.GetAdsForBreak(ctx, br)
	if err != nil {
		f.log.Ctx(ctx).Error("Ad decision failed",
			"tenant_id", tenant.ID,
			"channel", channel.Slug,
			"ad_break_id", br.AdBreakID,
			"error", err.Error())
		return nil, err
	}
	return resp, nil
}

func (f *AdDecisionFlowImpl) GetAdsForBreak(ctx context.Context, br BreakRequest) (*dto.AdDecisionResponse, error) {
	started := time.Now()
	ctx, span := observability.Tracer().Start(ctx, "ads.decision", trace.WithAttributes(
		attribute.Int64("ads.tenant_id", int64(br.Tenant.ID)),
		attribute.Int64("ads.channel_id", int64(br.Channel.ID)),
		attribute.String("ads.break_id", br.AdBreakID),
		attribute.String("ads.position", string(br.Position)),
	))
	defer span.End()

	br.Geo = NormalizeGeo(br.Geo)
	key := br.CacheKey()
	if cached := f.cachedDecision(ctx, key); cached != nil {
		span.SetAttributes(attribute.Bool("ads.cache_hit", true))
		f.finish(ctx, br, cached, started, true)
		return cached, nil
	}
	span.SetAttributes(attribute.Bool("ads.cache_hit", false))

	resp, limits, err := f.decide(ctx, br)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decision failed")
		return nil, err
	}

	if limits.MaxDurationSeconds > 0 {
		podFillRatio.Observe(float64(resp.TotalDurationSeconds) / float64(limits.MaxDurationSeconds))
	}
	span.SetAttributes(attribute.Int("ads.selected", len(resp.Ads)))

	f.storeDecision(ctx, key, resp)
	f.finish(ctx, br, resp, started, false)
	return resp, nil
}

func (f *AdDecisionFlowImpl) decide(ctx context.Context, br BreakRequest) (*dto.AdDecisionResponse, PodLimits, error) {
	podConfig, err := f.podConfigRepo.Resolve(ctx, br.Tenant.ID, br.Channel.ID, br.Position)
	if err != nil {
		return nil, PodLimits{}, fmt.Errorf("resolve pod config: %w", err)
	}
	limits := PodLimitsFor(podConfig, br.DurationSeconds)

	eligible, err := f.eligibility.FindEligibleAds(ctx, br.Tenant, br.Channel, br.Position, br.Geo, br.Device)
	if err != nil {
		return nil, limits, err
	}

	if br.Viewer != nil {
		allowed := eligible[:0:0]
		for _, ad := range eligible {
			if f.frequencyCaps.CanShowAd(ctx, ad, *br.Viewer) {
				allowed = append(allowed, ad)
			}
		}
		eligible = allowed
	}

	selected := SelectForPod(eligible, limits)
	podID := f.newPodID()

	resp := &dto.AdDecisionResponse{
		Ads:   make([]dto.DecisionAdItem, 0, len(selected)),
		PodID: podID,
	}
	for _, ad := range selected {
		item := LineItem{Ad: ad}
		if br.Viewer != nil {
			item.Variant = f.abTests.VariantForViewer(ctx, ad, *br.Viewer)
		}
		decisionItem := f.toDecisionItem(br, item, podID)
		resp.Ads = append(resp.Ads, decisionItem)
		resp.TotalDurationSeconds += decisionItem.DurationSeconds
	}

	return resp, limits, nil
}

func (f *AdDecisionFlowImpl) toDecisionItem(br BreakRequest, item LineItem, podID string) dto.DecisionAdItem {
	out := dto.DecisionAdItem{
		AdID:            item.ID(),
		CampaignID:      item.Ad.CampaignID,
		Title:           item.Ad.Name,
		VastURL:         item.MediaURL(f.mediaBaseURL),
		DurationSeconds: item.DurationSeconds(),
		AdType:          string(item.Ad.AdType),
		ClickThroughURL: item.ClickThroughURL(),
	}
	if item.Variant != nil {
		out.VariantID = utils.ToPtr(item.Variant.ID)
		out.ParentAdID = utils.ToPtr(item.Ad.ID)
		out.Title = item.Variant.Name
	}
	out.TrackingURLs = f.trackingURLs(br, item, podID, out.ClickThroughURL != nil)
	return out
}

// trackingURLs builds the beacons of one line item. They identify the parent ad;
// the variant travels as variant_id.
func (f *AdDecisionFlowImpl) trackingURLs(br BreakRequest, item LineItem, podID string, withClick bool) dto.TrackingURLs {
	params := url.Values{}
	params.Set("ad_id", strconv.FormatUint(uint64(item.Ad.ID), 10))
	params.Set("channel_id", strconv.FormatUint(uint64(br.Channel.ID), 10))
	if item.Variant != nil {
		params.Set("variant_id", strconv.FormatUint(uint64(item.Variant.ID), 10))
	}
	if br.Viewer != nil && br.Viewer.Type == utils.DefaultIdentifierType {
		params.Set("session_id", br.Viewer.Identifier)
	}
	if f.beacons != nil && f.beacons.Enabled() {
		token, err := f.beacons.Sign(services.BeaconClaims{TenantID: br.Tenant.ID, AdID: item.Ad.ID, PodID: podID})
		if err != nil {
			f.log.Warn("Failed to sign tracking beacon", "ad_id", item.Ad.ID, "error", err.Error())
		} else {
			params.Set("t", token)
		}
	}

	build := func(event models.EventType) string {
		params.Set("event_type", string(event))
		return f.publicBaseURL + TrackingPath + "?" + params.Encode()
	}

	urls := dto.TrackingURLs{
		Impression:    build(models.EventTypeImpression),
		Start:         build(models.EventTypeStart),
		FirstQuartile: build(models.EventTypeFirstQuartile),
		Midpoint:      build(models.EventTypeMidpoint),
		ThirdQuartile: build(models.EventTypeThirdQuartile),
		Complete:      build(models.EventTypeComplete),
	}
	if withClick {
		urls.Click = build(models.EventTypeClick)
	}
	return urls
}

func (f *AdDecisionFlowImpl) cachedDecision(ctx context.Context, key string) *dto.AdDecisionResponse {
	if f.decisionCache == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, f.storeTimeout)
	defer cancel()

	var resp dto.AdDecisionResponse
	found, err := cache.GetJSON(ctx, f.decisionCache, key, &resp)
	if err != nil {
		degraded(f.log, storeDecisionCache, err, "key", key)
		return nil
	}
	if !found {
		return nil
	}
	return &resp
}

func (f *AdDecisionFlowImpl) storeDecision(ctx context.Context, key string, resp *dto.AdDecisionResponse) {
	if f.decisionCache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, f.storeTimeout)
	defer cancel()

	if err := cache.SetJSON(ctx, f.decisionCache, key, resp, f.cacheTTL); err != nil {
		degraded(f.log, storeDecisionCache, err, "key", key)
	}
}

func (f *AdDecisionFlowImpl) finish(ctx context.Context, br BreakRequest, resp *dto.AdDecisionResponse, started time.Time, cacheHit bool) {
	elapsed := time.Since(started)
	label := "miss"
	if cacheHit {
		label = "hit"
	}
	decisionsTotal.WithLabelValues(label).Inc()
	decisionDuration.Observe(elapsed.Seconds())

	f.log.Ctx(ctx).Debug("Ad decision served",
		"tenant_id", br.Tenant.ID,
		"channel_id", br.Channel.ID,
		"ad_break_id", br.AdBreakID,
		"pod_id", resp.PodID,
		"ads", len(resp.Ads),
		"cache_hit", cacheHit,
		"elapsed_ms", elapsed.Milliseconds())

	if f.logDecisions {
		f.writeDecisionLog(br, resp, elapsed, cacheHit)
	}
}

// writeDecisionLog persists the decision in the background; failures are only logged
func (f *AdDecisionFlowImpl) writeDecisionLog(br BreakRequest, resp *dto.AdDecisionResponse, elapsed time.Duration, cacheHit bool) {
	adIDs := make([]uint, 0, len(resp.Ads))
	for _, item := range resp.Ads {
		adIDs = append(adIDs, item.AdID)
	}
	selected, err := json.Marshal(adIDs)
	if err != nil {
		f.log.Warn("Failed to encode decision log", "pod_id", resp.PodID, "error", err.Error())
		return
	}

	row := &models.AdDecisionLog{
		TenantID:       br.Tenant.ID,
		ChannelID:      br.Channel.ID,
		AdBreakID:      br.AdBreakID,
		Position:       br.Position,
		AdsSelected:    datatypes.JSON(selected),
		PodID:          resp.PodID,
		DecisionTimeMS: elapsed.Milliseconds(),
		CacheHit:       cacheHit,
		CreatedAt:      utils.UTCNow(),
	}
	if br.Geo != "" {
		row.RequestGeo = utils.ToPtr(br.Geo)
	}
	if br.Device != "" {
		row.RequestDevice = utils.ToPtr(br.Device)
	}

	f.pending.Add(1)
	go func() {
		defer f.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := f.decisionLogRepo.Save(ctx, row); err != nil {
			f.log.Warn("Failed to write decision log", "pod_id", row.PodID, "error", err.Error())
		}
	}()
}

func (f *AdDecisionFlowImpl) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		f.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
