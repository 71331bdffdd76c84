package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/fast-ads/app/dto"
	"github.com/amirphl/fast-ads/app/services"
	"github.com/amirphl/fast-ads/config"
	"github.com/amirphl/fast-ads/logger"
	"github.com/amirphl/fast-ads/models"
	"github.com/amirphl/fast-ads/repository"
	testingutil "github.com/amirphl/fast-ads/testing"
	"github.com/amirphl/fast-ads/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackingFlow_TrackEvents(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := context.Background()

		eventRepo := repository.NewTrackingEventRepository(testDB.DB)
		caps := NewFrequencyCapFlow(repository.NewFrequencyCapRepository(testDB.DB), nil, testDecisionConfig(), testBreakerConfig(), time.UTC, logger.NewNop())
		flow := NewTrackingFlow(repository.NewAdRepository(testDB.DB), repository.NewAdVariantRepository(testDB.DB), eventRepo, caps, nil, config.BeaconConfig{}, logger.NewNop())

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)
		campaign, err := fixtures.CreateTestCampaign(tenant.ID, models.CampaignStatusActive, 1)
		require.NoError(t, err)
		ad, err := fixtures.CreateTestAd(tenant.ID, campaign.ID, "tracked", 30)
		require.NoError(t, err)

		other, err := fixtures.CreateTestTenant()
		require.NoError(t, err)
		otherAd, err := fixtures.CreateTestAd(other.ID, 0, "foreign", 30)
		require.NoError(t, err)

		countEvents := func(t *testing.T, filter models.TrackingEventFilter) int64 {
			filter.TenantID = &tenant.ID
			n, err := eventRepo.Count(ctx, filter)
			require.NoError(t, err)
			return n
		}

		t.Run("PartialFailure", func(t *testing.T) {
			before := countEvents(t, models.TrackingEventFilter{})
			req := &dto.TrackEventsRequest{Events: []dto.TrackingEventRequest{
				{TenantID: tenant.ID, AdID: ad.ID, EventType: "start", GeoCountry: utils.ToPtr("us")},
				{TenantID: other.ID, AdID: ad.ID, EventType: "start"},
				{TenantID: tenant.ID, AdID: otherAd.ID, EventType: "start"},
				{TenantID: tenant.ID, AdID: ad.ID, EventType: "pause"},
				{TenantID: tenant.ID, AdID: ad.ID, EventType: "complete", GeoCountry: utils.ToPtr("USA")},
				{TenantID: tenant.ID, AdID: ad.ID, EventType: "complete", Metadata: map[string]any{"player": "web"}},
			}}

			resp, err := flow.TrackEvents(ctx, tenant, req, NewClientMetadata("10.0.0.1", "test-agent"))
			require.NoError(t, err)
			assert.Equal(t, 2, resp.Processed)
			assert.Equal(t, 4, resp.Failed)

			require.Len(t, resp.Errors, 4)
			assert.Equal(t, 1, resp.Errors[0].Index)
			assert.Equal(t, ErrTenantMismatch.Error(), resp.Errors[0].Message)
			assert.Equal(t, 2, resp.Errors[1].Index)
			assert.Equal(t, ErrAdNotFound.Error(), resp.Errors[1].Message)
			assert.Equal(t, 3, resp.Errors[2].Index)
			assert.Contains(t, resp.Errors[2].Message, "EventType")
			assert.Equal(t, 4, resp.Errors[3].Index)
			assert.Contains(t, resp.Errors[3].Message, "GeoCountry")

			assert.Equal(t, before+2, countEvents(t, models.TrackingEventFilter{}))

			started := models.EventTypeStart
			rows, err := eventRepo.ByFilter(ctx, models.TrackingEventFilter{TenantID: &tenant.ID, EventType: &started}, "", 10, 0)
			require.NoError(t, err)
			require.Len(t, rows, 1)
			row := rows[0]
			require.NotNil(t, row.CampaignID)
			assert.Equal(t, campaign.ID, *row.CampaignID)
			require.NotNil(t, row.GeoCountry)
			assert.Equal(t, "US", *row.GeoCountry)
			require.NotNil(t, row.IPAddress)
			assert.Equal(t, "10.0.0.1", *row.IPAddress)
			require.NotNil(t, row.UserAgent)
			assert.Equal(t, "test-agent", *row.UserAgent)
			assert.False(t, row.Timestamp.IsZero())
		})

		t.Run("VariantLineItem", func(t *testing.T) {
			variant, err := fixtures.CreateTestVariant(ad, "b", 50, 1)
			require.NoError(t, err)
			otherVariant, err := fixtures.CreateTestVariant(otherAd, "x", 50, 1)
			require.NoError(t, err)

			req := &dto.TrackEventsRequest{Events: []dto.TrackingEventRequest{
				// decision item echoed as is: ad_id is the variant
				{TenantID: tenant.ID, AdID: variant.ID, VariantID: &variant.ID, EventType: "first_quartile"},
				// tracking URL form: ad_id is the parent
				{TenantID: tenant.ID, AdID: ad.ID, VariantID: &variant.ID, EventType: "first_quartile"},
				{TenantID: tenant.ID, AdID: ad.ID, VariantID: &otherVariant.ID, EventType: "first_quartile"},
			}}
			resp, err := flow.TrackEvents(ctx, tenant, req, nil)
			require.NoError(t, err)
			assert.Equal(t, 2, resp.Processed)
			require.Len(t, resp.Errors, 1)
			assert.Equal(t, 2, resp.Errors[0].Index)
			assert.Equal(t, ErrVariantNotFound.Error(), resp.Errors[0].Message)

			quartile := models.EventTypeFirstQuartile
			rows, err := eventRepo.ByFilter(ctx, models.TrackingEventFilter{TenantID: &tenant.ID, EventType: &quartile}, "id ASC", 10, 0)
			require.NoError(t, err)
			require.Len(t, rows, 2)
			for _, row := range rows {
				assert.Equal(t, ad.ID, row.AdID)
				require.NotNil(t, row.VariantID)
				assert.Equal(t, variant.ID, *row.VariantID)
			}
		})

		t.Run("ImpressionRecordsCaps", func(t *testing.T) {
			ad.Campaign = campaign
			viewer := Viewer{Identifier: "sess-imp", Type: utils.DefaultIdentifierType}
			require.True(t, caps.CanShowAd(ctx, ad, viewer))

			for range utils.DefaultAdMaxImpressions {
				resp, err := flow.TrackEvents(ctx, tenant, &dto.TrackEventsRequest{Events: []dto.TrackingEventRequest{
					{TenantID: tenant.ID, AdID: ad.ID, EventType: "impression", SessionID: utils.ToPtr("sess-imp")},
				}}, nil)
				require.NoError(t, err)
				require.Equal(t, 1, resp.Processed)
			}
			assert.False(t, caps.CanShowAd(ctx, ad, viewer))

			// impressions without a session are stored but not counted
			resp, err := flow.TrackEvents(ctx, tenant, &dto.TrackEventsRequest{Events: []dto.TrackingEventRequest{
				{TenantID: tenant.ID, AdID: ad.ID, EventType: "impression"},
			}}, nil)
			require.NoError(t, err)
			assert.Equal(t, 1, resp.Processed)
			assert.True(t, caps.CanShowAd(ctx, ad, Viewer{Identifier: "sess-other", Type: utils.DefaultIdentifierType}))
		})

		t.Run("ExplicitTimestampKept", func(t *testing.T) {
			ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
			session := "sess-ts"
			resp, err := flow.TrackEvents(ctx, tenant, &dto.TrackEventsRequest{Events: []dto.TrackingEventRequest{
				{TenantID: tenant.ID, AdID: ad.ID, EventType: "midpoint", SessionID: &session, Timestamp: &ts},
			}}, nil)
			require.NoError(t, err)
			require.Equal(t, 1, resp.Processed)

			rows, err := eventRepo.ByFilter(ctx, models.TrackingEventFilter{TenantID: &tenant.ID, SessionID: &session}, "", 10, 0)
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.True(t, ts.Equal(rows[0].Timestamp), rows[0].Timestamp)
		})

		t.Run("BatchBounds", func(t *testing.T) {
			_, err := flow.TrackEvents(ctx, tenant, &dto.TrackEventsRequest{}, nil)
			assert.True(t, IsEmptyBatch(err))

			big := make([]dto.TrackingEventRequest, utils.MaxTrackingBatchSize+1)
			_, err = flow.TrackEvents(ctx, tenant, &dto.TrackEventsRequest{Events: big}, nil)
			assert.True(t, IsBatchTooLarge(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestTrackingFlow_TrackBeacon(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := context.Background()

		eventRepo := repository.NewTrackingEventRepository(testDB.DB)
		adRepo := repository.NewAdRepository(testDB.DB)
		beacons := services.NewBeaconTokenService("beacon-secret", time.Hour)

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)
		campaign, err := fixtures.CreateTestCampaign(tenant.ID, models.CampaignStatusActive, 1)
		require.NoError(t, err)
		ad, err := fixtures.CreateTestAd(tenant.ID, campaign.ID, "pixel", 30)
		require.NoError(t, err)
		sibling, err := fixtures.CreateTestAd(tenant.ID, campaign.ID, "sibling", 30)
		require.NoError(t, err)

		count := func(t *testing.T) int64 {
			n, err := eventRepo.Count(ctx, models.TrackingEventFilter{TenantID: &tenant.ID})
			require.NoError(t, err)
			return n
		}

		t.Run("UnsignedAccepted", func(t *testing.T) {
			flow := NewTrackingFlow(adRepo, nil, eventRepo, nil, beacons, config.BeaconConfig{}, logger.NewNop())
			before := count(t)
			err := flow.TrackBeacon(ctx, &dto.TrackingPixelRequest{AdID: ad.ID, EventType: "start", ChannelID: 4, SessionID: "sess-px"}, nil)
			require.NoError(t, err)
			assert.Equal(t, before+1, count(t))

			session := "sess-px"
			rows, err := eventRepo.ByFilter(ctx, models.TrackingEventFilter{SessionID: &session}, "", 1, 0)
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, tenant.ID, rows[0].TenantID)
			require.NotNil(t, rows[0].ChannelID)
			assert.Equal(t, uint(4), *rows[0].ChannelID)
			require.NotNil(t, rows[0].CampaignID)
			assert.Equal(t, campaign.ID, *rows[0].CampaignID)
		})

		t.Run("SignedRequired", func(t *testing.T) {
			flow := NewTrackingFlow(adRepo, nil, eventRepo, nil, beacons, config.BeaconConfig{RequireSigned: true}, logger.NewNop())

			err := flow.TrackBeacon(ctx, &dto.TrackingPixelRequest{AdID: ad.ID, EventType: "start"}, nil)
			assert.True(t, IsInvalidBeacon(err))

			token, err := beacons.Sign(services.BeaconClaims{TenantID: tenant.ID, AdID: ad.ID, PodID: "pod_1"})
			require.NoError(t, err)

			before := count(t)
			require.NoError(t, flow.TrackBeacon(ctx, &dto.TrackingPixelRequest{AdID: ad.ID, EventType: "complete", Token: token}, nil))
			assert.Equal(t, before+1, count(t))

			// a token is bound to its ad
			err = flow.TrackBeacon(ctx, &dto.TrackingPixelRequest{AdID: sibling.ID, EventType: "complete", Token: token}, nil)
			assert.True(t, IsInvalidBeacon(err))

			err = flow.TrackBeacon(ctx, &dto.TrackingPixelRequest{AdID: ad.ID, EventType: "complete", Token: "garbage"}, nil)
			assert.True(t, IsInvalidBeacon(err))
		})

		t.Run("UnknownAdOrEvent", func(t *testing.T) {
			flow := NewTrackingFlow(adRepo, nil, eventRepo, nil, beacons, config.BeaconConfig{}, logger.NewNop())
			err := flow.TrackBeacon(ctx, &dto.TrackingPixelRequest{AdID: 999999, EventType: "start"}, nil)
			assert.True(t, IsAdNotFound(err))

			err = flow.TrackBeacon(ctx, &dto.TrackingPixelRequest{AdID: ad.ID, EventType: "rewind"}, nil)
			assert.True(t, IsInvalidEventType(err))
		})

		return nil
	})
	require.NoError(t, err)
}
