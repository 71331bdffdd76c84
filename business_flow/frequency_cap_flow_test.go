package businessflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amirphl/fast-ads/cache"
	"github.com/amirphl/fast-ads/config"
	"github.com/amirphl/fast-ads/logger"
	"github.com/amirphl/fast-ads/models"
	"github.com/amirphl/fast-ads/repository"
	testingutil "github.com/amirphl/fast-ads/testing"
	"github.com/amirphl/fast-ads/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("store down")

// failingCapRepo fails every call
type failingCapRepo struct{ calls int }

func (r *failingCapRepo) ByKey(context.Context, models.FrequencyCapKey) (*models.FrequencyCap, error) {
	r.calls++
	return nil, errStoreDown
}

func (r *failingCapRepo) RecordImpression(context.Context, uint, models.FrequencyCapKey, int, time.Time, time.Time, time.Time) (*models.FrequencyCap, error) {
	r.calls++
	return nil, errStoreDown
}

func testDecisionConfig() config.DecisionConfig {
	return config.DecisionConfig{
		CacheTTL:                   time.Minute,
		VASTDurationSeconds:        120,
		VASTBreakID:                utils.VASTPlaceholderBreakID,
		StoreTimeout:               5 * time.Second,
		PublicBaseURL:              "https://ads.test",
		MediaBaseURL:               "https://media.test",
		TimeZone:                   "UTC",
		DefaultAdMaxImpressions:    3,
		DefaultCampaignImpressions: 5,
		DefaultTimeWindow:          "day",
	}
}

func testBreakerConfig() config.BreakerConfig {
	return config.BreakerConfig{ConsecutiveFailures: 3, OpenTimeout: time.Minute, HalfOpenMaxRequests: 1}
}

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

func TestFrequencyCapFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := context.Background()

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)
		campaign, err := fixtures.CreateTestCampaign(tenant.ID, models.CampaignStatusActive, 1)
		require.NoError(t, err)
		ad, err := fixtures.CreateTestAd(tenant.ID, campaign.ID, "capped", 30)
		require.NoError(t, err)

		capRepo := repository.NewFrequencyCapRepository(testDB.DB)
		viewer := Viewer{Identifier: "sess-1", Type: utils.DefaultIdentifierType}
		ref := AdCapRef(ad)

		newFlow := func(store cache.Store) (*FrequencyCapFlowImpl, *fixedClock) {
			clock := &fixedClock{t: time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)}
			flow := NewFrequencyCapFlow(capRepo, store, testDecisionConfig(), testBreakerConfig(), time.UTC, logger.NewNop())
			flow.now = clock.Now
			return flow, clock
		}

		t.Run("RecordThenBlockedAtMax", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			tenant, _ = fixtures.CreateTestTenant()
			ad, _ = fixtures.CreateTestAd(tenant.ID, 0, "single", 30)
			ref = AdCapRef(ad)

			flow, _ := newFlow(nil)
			assert.True(t, flow.CanShow(ctx, ref, viewer, 1, models.TimeWindowDay))
			require.NoError(t, flow.RecordImpression(ctx, ref, viewer, 1, models.TimeWindowDay))
			assert.False(t, flow.CanShow(ctx, ref, viewer, 1, models.TimeWindowDay))

			// other viewers and identifier types count separately
			assert.True(t, flow.CanShow(ctx, ref, Viewer{Identifier: "sess-2", Type: "session"}, 1, models.TimeWindowDay))
			assert.True(t, flow.CanShow(ctx, ref, Viewer{Identifier: "sess-1", Type: "device"}, 1, models.TimeWindowDay))
			// and so do windows
			assert.True(t, flow.CanShow(ctx, ref, viewer, 1, models.TimeWindowHour))
		})

		t.Run("CounterRestartsInNextWindow", func(t *testing.T) {
			store := cache.NewMemoryStore(0)
			defer store.Close()
			flow, clock := newFlow(store)
			ref := CapRef{TenantID: ad.TenantID, Subject: models.CapSubjectAd, ID: ad.ID + 1000}

			require.NoError(t, flow.RecordImpression(ctx, ref, viewer, 2, models.TimeWindowDay))
			require.NoError(t, flow.RecordImpression(ctx, ref, viewer, 2, models.TimeWindowDay))
			assert.False(t, flow.CanShow(ctx, ref, viewer, 2, models.TimeWindowDay))

			stored, err := capRepo.ByKey(ctx, ref.key(viewer, models.TimeWindowDay))
			require.NoError(t, err)
			require.NotNil(t, stored)
			assert.Equal(t, 2, stored.ImpressionCount)
			assert.True(t, stored.WindowStart.Equal(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)))
			assert.True(t, stored.WindowEnd.Equal(time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC)))

			// the cached entry is still present but its window has ended
			clock.t = time.Date(2025, 1, 16, 0, 0, 1, 0, time.UTC)
			assert.True(t, flow.CanShow(ctx, ref, viewer, 2, models.TimeWindowDay))

			require.NoError(t, flow.RecordImpression(ctx, ref, viewer, 2, models.TimeWindowDay))
			stored, err = capRepo.ByKey(ctx, ref.key(viewer, models.TimeWindowDay))
			require.NoError(t, err)
			assert.Equal(t, 1, stored.ImpressionCount)
			assert.True(t, stored.WindowStart.Equal(time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC)))
			assert.True(t, flow.CanShow(ctx, ref, viewer, 2, models.TimeWindowDay))
		})

		t.Run("CacheAnswersBeforeTable", func(t *testing.T) {
			store := cache.NewMemoryStore(0)
			defer store.Close()
			flow, clock := newFlow(store)
			ref := CapRef{TenantID: ad.TenantID, Subject: models.CapSubjectAd, ID: ad.ID + 2000}

			entry := capCacheEntry{Count: 5, WindowEnd: clock.t.Add(time.Hour)}
			require.NoError(t, cache.SetJSON(ctx, store, ref.CacheKey(viewer, models.TimeWindowDay), entry, time.Hour))
			assert.False(t, flow.CanShow(ctx, ref, viewer, 5, models.TimeWindowDay))
			assert.True(t, flow.CanShow(ctx, ref, viewer, 6, models.TimeWindowDay))
		})

		t.Run("CampaignCapAppliesAcrossAds", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			tenant, err := fixtures.CreateTestTenant()
			require.NoError(t, err)
			campaign, err := fixtures.CreateTestCampaign(tenant.ID, models.CampaignStatusActive, 1)
			require.NoError(t, err)
			campaign.Metadata = models.InventoryMetadata{FrequencyCap: &models.FrequencyCapSettings{MaxImpressions: utils.ToPtr(1)}}

			first, err := fixtures.CreateTestAd(tenant.ID, campaign.ID, "first", 15)
			require.NoError(t, err)
			second, err := fixtures.CreateTestAd(tenant.ID, campaign.ID, "second", 15)
			require.NoError(t, err)
			first.Campaign, second.Campaign = campaign, campaign

			flow, _ := newFlow(nil)
			assert.True(t, flow.CanShowAd(ctx, second, viewer))
			require.NoError(t, flow.RecordAdImpression(ctx, first, viewer))
			assert.False(t, flow.CanShowAd(ctx, second, viewer))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestFrequencyCapFlow_DegradesToAllowed(t *testing.T) {
	repo := &failingCapRepo{}
	flow := NewFrequencyCapFlow(repo, nil, testDecisionConfig(), testBreakerConfig(), time.UTC, logger.NewNop())
	ctx := context.Background()
	ref := CapRef{TenantID: 1, Subject: models.CapSubjectAd, ID: 1}
	viewer := Viewer{Identifier: "v", Type: "session"}

	for range 5 {
		assert.True(t, flow.CanShow(ctx, ref, viewer, 1, models.TimeWindowDay))
	}
	// the breaker opened after three failures and stopped calling the store
	assert.Equal(t, 3, repo.calls)

	err := flow.RecordImpression(ctx, ref, viewer, 1, models.TimeWindowDay)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, 3, repo.calls)
}
