package businessflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/fast-ads/app/dto"
	"github.com/amirphl/fast-ads/app/services"
	"github.com/amirphl/fast-ads/config"
	"github.com/amirphl/fast-ads/logger"
	"github.com/amirphl/fast-ads/models"
	"github.com/amirphl/fast-ads/repository"
	"github.com/amirphl/fast-ads/utils"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

// trackingFanOut bounds the events of one batch written concurrently
const trackingFanOut = 8

// TrackingFlow records player and stitcher events
type TrackingFlow interface {
	// TrackEvents records every event of the batch independently and reports per-event failures
	TrackEvents(ctx context.Context, tenant *models.Tenant, req *dto.TrackEventsRequest, metadata *ClientMetadata) (*dto.TrackEventsResponse, error)
	// TrackBeacon records one event fired from a tracking URL
	TrackBeacon(ctx context.Context, req *dto.TrackingPixelRequest, metadata *ClientMetadata) error
}

type TrackingFlowImpl struct {
	adRepo        repository.AdRepository
	variantRepo   repository.AdVariantRepository
	eventRepo     repository.TrackingEventRepository
	frequencyCaps FrequencyCapFlow
	beacons       services.BeaconTokenService
	validate      *validator.Validate
	requireSigned bool
	log           *logger.Logger
	now           func() time.Time
}

func NewTrackingFlow(
	adRepo repository.AdRepository,
	variantRepo repository.AdVariantRepository,
	eventRepo repository.TrackingEventRepository,
	frequencyCaps FrequencyCapFlow,
	beacons services.BeaconTokenService,
	beaconCfg config.BeaconConfig,
	log *logger.Logger,
) *TrackingFlowImpl {
	return &TrackingFlowImpl{
		adRepo:        adRepo,
		variantRepo:   variantRepo,
		eventRepo:     eventRepo,
		frequencyCaps: frequencyCaps,
		beacons:       beacons,
		validate:      validator.New(),
		requireSigned: beaconCfg.RequireSigned,
		log:           log,
		now:           utils.UTCNow,
	}
}

func (f *TrackingFlowImpl) TrackEvents(ctx context.Context, tenant *models.Tenant, req *dto.TrackEventsRequest, metadata *ClientMetadata) (resp *dto.TrackEventsResponse, err error) {
	defer func() {
		if err != nil {
			err = NewBusinessError("TRACK_EVENTS_FAILED", "Tracking events failed", err)
		}
	}()

	if !tenant.IsActive() {
		return nil, ErrTenantInactive
	}
	if len(req.Events) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(req.Events) > utils.MaxTrackingBatchSize {
		return nil, ErrBatchTooLarge
	}

	failures := make([]error, len(req.Events))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(trackingFanOut)
	for i := range req.Events {
		g.Go(func() error {
			failures[i] = f.trackOne(gctx, tenant, &req.Events[i], metadata)
			return nil
		})
	}
	_ = g.Wait()

	resp = &dto.TrackEventsResponse{}
	for i, failure := range failures {
		eventType := req.Events[i].EventType
		if failure == nil {
			resp.Processed++
			trackingEventsTotal.WithLabelValues(eventType, "ok").Inc()
			continue
		}
		resp.Failed++
		trackingEventsTotal.WithLabelValues(eventLabel(eventType), "failed").Inc()
		resp.Errors = append(resp.Errors, dto.TrackingEventError{Index: i, Message: f.failureMessage(ctx, tenant, i, failure)})
	}
	return resp, nil
}

func (f *TrackingFlowImpl) trackOne(ctx context.Context, tenant *models.Tenant, ev *dto.TrackingEventRequest, metadata *ClientMetadata) error {
	if err := f.validate.Struct(ev); err != nil {
		return invalidEvent(err)
	}
	if ev.TenantID != tenant.ID {
		return ErrTenantMismatch
	}
	eventType := models.EventType(ev.EventType)
	if !eventType.Valid() {
		return ErrInvalidEventType
	}

	adID, err := f.resolveAdID(ctx, tenant.ID, ev.AdID, ev.VariantID)
	if err != nil {
		return err
	}
	ad, err := f.adRepo.ByTenantAndID(ctx, tenant.ID, adID)
	if err != nil {
		return fmt.Errorf("load ad: %w", err)
	}
	if ad == nil {
		return ErrAdNotFound
	}

	event := &models.TrackingEvent{
		TenantID:   tenant.ID,
		ChannelID:  ev.ChannelID,
		AdID:       ad.ID,
		CampaignID: ev.CampaignID,
		VariantID:  ev.VariantID,
		EventType:  eventType,
		SessionID:  nonEmpty(ev.SessionID),
		DeviceType: nonEmpty(ev.DeviceType),
		GeoCountry: upperNonEmpty(ev.GeoCountry),
		IPAddress:  nonEmpty(ev.IPAddress),
		UserAgent:  nonEmpty(ev.UserAgent),
	}
	if ev.Timestamp != nil && !ev.Timestamp.IsZero() {
		event.Timestamp = ev.Timestamp.UTC()
	}
	if len(ev.Metadata) > 0 {
		encoded, err := json.Marshal(ev.Metadata)
		if err != nil {
			return invalidEvent(err)
		}
		event.Metadata = datatypes.JSON(encoded)
	}
	applyClientMetadata(event, metadata)

	return f.record(ctx, ad, event)
}

func (f *TrackingFlowImpl) TrackBeacon(ctx context.Context, req *dto.TrackingPixelRequest, metadata *ClientMetadata) (err error) {
	defer func() {
		if err != nil {
			err = NewBusinessError("TRACK_BEACON_FAILED", "Tracking beacon failed", err)
		}
	}()

	eventType := models.EventType(req.EventType)
	if !eventType.Valid() {
		return ErrInvalidEventType
	}

	ad, err := f.beaconAd(ctx, req)
	if err != nil {
		return err
	}

	event := &models.TrackingEvent{
		TenantID:  ad.TenantID,
		AdID:      ad.ID,
		EventType: eventType,
		SessionID: nonEmpty(&req.SessionID),
	}
	if req.ChannelID > 0 {
		event.ChannelID = utils.ToPtr(req.ChannelID)
	}
	if req.VariantID > 0 {
		event.VariantID = utils.ToPtr(req.VariantID)
	}
	applyClientMetadata(event, metadata)

	err = f.record(ctx, ad, event)
	trackingEventsTotal.WithLabelValues(string(eventType), resultLabel(err)).Inc()
	return err
}

// beaconAd resolves the ad of a pixel hit. A valid token pins the tenant; unsigned hits are
// accepted only while signed beacons are optional.
func (f *TrackingFlowImpl) beaconAd(ctx context.Context, req *dto.TrackingPixelRequest) (*models.Ad, error) {
	var tenantID uint
	switch {
	case req.Token != "" && f.beacons != nil && f.beacons.Enabled():
		claims, err := f.beacons.Verify(req.Token)
		if err != nil || claims.AdID != req.AdID {
			return nil, ErrInvalidBeacon
		}
		tenantID = claims.TenantID
	case f.requireSigned:
		return nil, ErrInvalidBeacon
	default:
		owner, err := f.adRepo.ByID(ctx, req.AdID)
		if err != nil {
			return nil, fmt.Errorf("load ad: %w", err)
		}
		if owner == nil {
			return nil, ErrAdNotFound
		}
		tenantID = owner.TenantID
	}

	ad, err := f.adRepo.ByTenantAndID(ctx, tenantID, req.AdID)
	if err != nil {
		return nil, fmt.Errorf("load ad: %w", err)
	}
	if ad == nil {
		return nil, ErrAdNotFound
	}
	return ad, nil
}

// record stores the event and, for impressions carrying a session, counts it against the caps
func (f *TrackingFlowImpl) record(ctx context.Context, ad *models.Ad, event *models.TrackingEvent) error {
	if event.CampaignID == nil {
		event.CampaignID = ad.CampaignID
	}
	now := f.now()
	if event.Timestamp.IsZero() {
		event.Timestamp = now
	}
	event.CreatedAt = now

	if err := f.eventRepo.Save(ctx, event); err != nil {
		return fmt.Errorf("save tracking event: %w", err)
	}

	if event.EventType == models.EventTypeImpression && event.SessionID != nil && f.frequencyCaps != nil {
		viewer := Viewer{Identifier: *event.SessionID, Type: utils.DefaultIdentifierType}
		if err := f.frequencyCaps.RecordAdImpression(ctx, ad, viewer); err != nil {
			f.log.Ctx(ctx).Warn("Failed to record impression against frequency caps",
				"tenant_id", event.TenantID,
				"ad_id", ad.ID,
				"error", err.Error())
		}
	}
	return nil
}

// resolveAdID maps the ad_id of an event to its parent ad. Decision items of an A/B line
// item carry the variant id as ad_id, so with a variant_id present ad_id may name either
// the variant itself or its parent ad.
func (f *TrackingFlowImpl) resolveAdID(ctx context.Context, tenantID, adID uint, variantID *uint) (uint, error) {
	if variantID == nil || f.variantRepo == nil {
		return adID, nil
	}
	variant, err := f.variantRepo.ByTenantAndID(ctx, tenantID, *variantID)
	if err != nil {
		return 0, fmt.Errorf("load variant: %w", err)
	}
	if variant == nil || (adID != variant.ID && adID != variant.AdID) {
		return 0, ErrVariantNotFound
	}
	return variant.AdID, nil
}

// failureMessage exposes caller mistakes and hides internal failures
func (f *TrackingFlowImpl) failureMessage(ctx context.Context, tenant *models.Tenant, index int, err error) string {
	var invalid *eventValidationError
	switch {
	case errors.As(err, &invalid):
		return invalid.Error()
	case IsTenantMismatch(err), IsAdNotFound(err), IsVariantNotFound(err), IsInvalidEventType(err):
		return err.Error()
	default:
		f.log.Ctx(ctx).Error("Failed to record tracking event",
			"tenant_id", tenant.ID,
			"index", index,
			"error", err.Error())
		return "failed to record event"
	}
}

type eventValidationError struct {
	fields []string
}

func (e *eventValidationError) Error() string {
	return "invalid event: " + strings.Join(e.fields, ", ")
}

func invalidEvent(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
		return &eventValidationError{fields: fields}
	}
	return &eventValidationError{fields: []string{err.Error()}}
}

func applyClientMetadata(event *models.TrackingEvent, metadata *ClientMetadata) {
	if metadata == nil {
		return
	}
	if event.IPAddress == nil && metadata.IPAddress != "" {
		event.IPAddress = utils.ToPtr(metadata.IPAddress)
	}
	if event.UserAgent == nil && metadata.UserAgent != "" {
		event.UserAgent = utils.ToPtr(metadata.UserAgent)
	}
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return utils.ToPtr(strings.TrimSpace(*s))
}

func upperNonEmpty(s *string) *string {
	v := nonEmpty(s)
	if v != nil {
		*v = strings.ToUpper(*v)
	}
	return v
}

// eventLabel keeps unknown event types from creating new label values
func eventLabel(eventType string) string {
	if models.EventType(eventType).Valid() {
		return eventType
	}
	return "unknown"
}

func resultLabel(err error) string {
	if err != nil {
		return "failed"
	}
	return "ok"
}
