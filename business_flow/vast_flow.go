package businessflow

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/amirphl/fast-ads/app/dto"
	"github.com/amirphl/fast-ads/config"
	"github.com/amirphl/fast-ads/logger"
	"github.com/amirphl/fast-ads/models"
	"github.com/amirphl/fast-ads/repository"
	"github.com/amirphl/fast-ads/utils"
)

// Document constants
const (
	VASTVersion   = "3.0"
	VMAPVersion   = "1.0"
	VMAPNamespace = "http://www.iab.net/vmap-1.0"
	AdSystemName  = "FAST Ads Platform"

	VASTContentType = "application/vast+xml"
	VMAPContentType = "application/vmap+xml"

	mediaWidth   = 1920
	mediaHeight  = 1080
	mediaBitrate = 2000
)

// AdTagFlow renders the VMAP and VAST documents requested by client-side players
type AdTagFlow interface {
	// GenerateVMAP lists the channel's scheduled breaks, each pointing at the VAST endpoint
	GenerateVMAP(ctx context.Context, tenant *models.Tenant, tenantSlug, channelSlug string, req *dto.AdTagRequest) ([]byte, error)
	// GenerateVAST decides a pod for position and renders it as VAST 3.0
	GenerateVAST(ctx context.Context, tenant *models.Tenant, tenantSlug, channelSlug string, req *dto.AdTagRequest) ([]byte, error)
}

type AdTagFlowImpl struct {
	channelRepo   repository.ChannelRepository
	adBreakRepo   repository.AdBreakRepository
	decisions     AdDecisionFlow
	publicBaseURL string
	breakID       string
	duration      int
	log           *logger.Logger
}

func NewAdTagFlow(
	channelRepo repository.ChannelRepository,
	adBreakRepo repository.AdBreakRepository,
	decisions AdDecisionFlow,
	cfg config.DecisionConfig,
	log *logger.Logger,
) *AdTagFlowImpl {
	duration := cfg.VASTDurationSeconds
	if duration <= 0 {
		duration = utils.VASTDefaultDurationSeconds
	}
	return &AdTagFlowImpl{
		channelRepo:   channelRepo,
		adBreakRepo:   adBreakRepo,
		decisions:     decisions,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		breakID:       utils.StringOr(cfg.VASTBreakID, utils.VASTPlaceholderBreakID),
		duration:      duration,
		log:           log,
	}
}

func (f *AdTagFlowImpl) GenerateVMAP(ctx context.Context, tenant *models.Tenant, tenantSlug, channelSlug string, req *dto.AdTagRequest) (doc []byte, err error) {
	defer func() {
		if err != nil {
			err = NewBusinessError("VMAP_GENERATION_FAILED", "VMAP generation failed", err)
		}
	}()

	channel, err := f.resolveChannel(ctx, tenant, tenantSlug, channelSlug)
	if err != nil {
		return nil, err
	}

	breaks, err := f.adBreakRepo.ListActiveByChannel(ctx, channel.ID)
	if err != nil {
		return nil, fmt.Errorf("list ad breaks: %w", err)
	}

	return RenderVMAP(breaks, func(position models.PositionType) string {
		return f.vastURL(tenant.Slug, channel.Slug, position, req)
	})
}

func (f *AdTagFlowImpl) GenerateVAST(ctx context.Context, tenant *models.Tenant, tenantSlug, channelSlug string, req *dto.AdTagRequest) (doc []byte, err error) {
	defer func() {
		if err != nil {
			err = NewBusinessError("VAST_GENERATION_FAILED", "VAST generation failed", err)
		}
	}()

	channel, err := f.resolveChannel(ctx, tenant, tenantSlug, channelSlug)
	if err != nil {
		return nil, err
	}

	position := models.PositionType(utils.StringOr(req.Position, string(models.PositionPreRoll)))
	if !position.Valid() {
		return nil, ErrInvalidPosition
	}

	decision, err := f.decisions.GetAdsForBreak(ctx, BreakRequest{
		Tenant:          tenant,
		Channel:         channel,
		AdBreakID:       f.breakID,
		Position:        position,
		DurationSeconds: f.duration,
		Geo:             req.Geo,
		Device:          req.Device,
		Viewer:          NewViewer(req.ViewerIdentifier, req.IdentifierType),
	})
	if err != nil {
		return nil, err
	}

	return RenderVAST(decision)
}

// resolveChannel checks that the path tenant is the authenticated one and loads its active channel
func (f *AdTagFlowImpl) resolveChannel(ctx context.Context, tenant *models.Tenant, tenantSlug, channelSlug string) (*models.Channel, error) {
	if !tenant.IsActive() || tenant.Slug != tenantSlug {
		return nil, ErrTenantNotFound
	}
	channel, err := f.channelRepo.BySlug(ctx, tenant.ID, channelSlug)
	if err != nil {
		return nil, err
	}
	if channel == nil || channel.Status != models.ChannelStatusActive {
		return nil, ErrChannelNotFound
	}
	return channel, nil
}

func (f *AdTagFlowImpl) vastURL(tenantSlug, channelSlug string, position models.PositionType, req *dto.AdTagRequest) string {
	params := url.Values{}
	params.Set("position", string(position))
	if req.Geo != "" {
		params.Set("geo", req.Geo)
	}
	if req.Device != "" {
		params.Set("device", req.Device)
	}
	if req.ViewerIdentifier != "" {
		params.Set("viewer_identifier", req.ViewerIdentifier)
		if req.IdentifierType != "" {
			params.Set("identifier_type", req.IdentifierType)
		}
	}
	return fmt.Sprintf("%s/api/v1/ads/vast/%s/%s?%s",
		f.publicBaseURL, url.PathEscape(tenantSlug), url.PathEscape(channelSlug), params.Encode())
}

// TimeOffset is "start" for pre-roll, "end" for post-roll and HH:MM:SS otherwise
func TimeOffset(b *models.AdBreak) string {
	switch b.PositionType {
	case models.PositionPreRoll:
		return "start"
	case models.PositionPostRoll:
		return "end"
	default:
		return utils.FormatHMS(b.OffsetSeconds)
	}
}

// RenderVMAP emits one AdBreak per break in the given order
func RenderVMAP(breaks []*models.AdBreak, vastURL func(models.PositionType) string) ([]byte, error) {
	doc := dto.VMAP{
		XMLNS:    VMAPNamespace,
		Version:  VMAPVersion,
		AdBreaks: make([]dto.VMAPAdBreak, 0, len(breaks)),
	}
	for _, b := range breaks {
		id := strconv.FormatUint(uint64(b.ID), 10)
		doc.AdBreaks = append(doc.AdBreaks, dto.VMAPAdBreak{
			TimeOffset: TimeOffset(b),
			BreakType:  "linear",
			BreakID:    id,
			AdSource: dto.VMAPAdSource{
				ID:               id,
				AllowMultipleAds: true,
				FollowRedirects:  true,
				AdTagURI: dto.VMAPAdTagURI{
					TemplateType: "vast3",
					URI:          vastURL(b.PositionType),
				},
			},
		})
	}
	return marshalXML(doc)
}

// RenderVAST emits one InLine ad per line item, sequenced in pod order
func RenderVAST(decision *dto.AdDecisionResponse) ([]byte, error) {
	doc := dto.VAST{Version: VASTVersion, Ads: make([]dto.VASTAd, 0, len(decision.Ads))}
	for i, item := range decision.Ads {
		doc.Ads = append(doc.Ads, vastAd(item, i+1))
	}
	return marshalXML(doc)
}

func vastAd(item dto.DecisionAdItem, sequence int) dto.VASTAd {
	id := strconv.FormatUint(uint64(item.AdID), 10)

	linear := &dto.VASTLinear{
		Duration: utils.FormatHMS(item.DurationSeconds),
		TrackingEvents: &dto.VASTTrackingEvents{Tracking: []dto.VASTTracking{
			{Event: "start", URL: item.TrackingURLs.Start},
			{Event: "firstQuartile", URL: item.TrackingURLs.FirstQuartile},
			{Event: "midpoint", URL: item.TrackingURLs.Midpoint},
			{Event: "thirdQuartile", URL: item.TrackingURLs.ThirdQuartile},
			{Event: "complete", URL: item.TrackingURLs.Complete},
		}},
		MediaFiles: dto.VASTMediaFiles{MediaFile: []dto.VASTMediaFile{mediaFile(id, item.VastURL)}},
	}
	if item.ClickThroughURL != nil && *item.ClickThroughURL != "" {
		clicks := &dto.VASTVideoClicks{ClickThrough: &dto.CDATA{Value: *item.ClickThroughURL}}
		if item.TrackingURLs.Click != "" {
			clicks.ClickTracking = []dto.CDATA{{Value: item.TrackingURLs.Click}}
		}
		linear.VideoClicks = clicks
	}

	return dto.VASTAd{
		ID:       "ad_" + id,
		Sequence: sequence,
		InLine: &dto.VASTInLine{
			AdSystem:   AdSystemName,
			AdTitle:    "Ad " + id,
			Impression: []dto.CDATA{{Value: item.TrackingURLs.Impression}},
			Creatives: dto.VASTCreatives{Creative: []dto.VASTCreative{
				{ID: "creative_" + id, Sequence: 1, Linear: linear},
			}},
		},
	}
}

// mediaFile picks HLS streaming for .m3u8 sources and progressive MP4 otherwise
func mediaFile(adID, mediaURL string) dto.VASTMediaFile {
	mf := dto.VASTMediaFile{
		ID:       "media_" + adID,
		Delivery: "progressive",
		Type:     "video/mp4",
		Bitrate:  mediaBitrate,
		Width:    mediaWidth,
		Height:   mediaHeight,
		URL:      mediaURL,
	}
	if isHLS(mediaURL) {
		mf.ID += "_hls"
		mf.Delivery = "streaming"
		mf.Type = "application/x-mpegURL"
	}
	return mf
}

func isHLS(mediaURL string) bool {
	path := mediaURL
	if u, err := url.Parse(mediaURL); err == nil && u.Path != "" {
		path = u.Path
	}
	return strings.HasSuffix(strings.ToLower(path), ".m3u8")
}

func marshalXML(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode xml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode xml: %w", err)
	}
	return buf.Bytes(), nil
}
