package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/fast-ads/logger"
	"github.com/amirphl/fast-ads/models"
	"github.com/amirphl/fast-ads/repository"
	testingutil "github.com/amirphl/fast-ads/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEligibilityResolver(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := context.Background()

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)
		channel, err := fixtures.CreateTestChannel(tenant.ID, "news")
		require.NoError(t, err)
		sports, err := fixtures.CreateTestChannel(tenant.ID, "sports")
		require.NoError(t, err)

		low, err := fixtures.CreateTestCampaign(tenant.ID, models.CampaignStatusActive, 1)
		require.NoError(t, err)
		high, err := fixtures.CreateTestCampaign(tenant.ID, models.CampaignStatusActive, 5)
		require.NoError(t, err)
		paused, err := fixtures.CreateTestCampaign(tenant.ID, models.CampaignStatusPaused, 9)
		require.NoError(t, err)

		lowFirst, err := fixtures.CreateTestAd(tenant.ID, low.ID, "low-first", 15)
		require.NoError(t, err)
		highAd, err := fixtures.CreateTestAd(tenant.ID, high.ID, "high", 30)
		require.NoError(t, err)
		lowSecond, err := fixtures.CreateTestAd(tenant.ID, low.ID, "low-second", 15)
		require.NoError(t, err)
		geoAd, err := fixtures.CreateTestAd(tenant.ID, high.ID, "geo", 20)
		require.NoError(t, err)
		_, err = fixtures.CreateTestRule(geoAd.ID, models.RuleTypeGeo, models.RuleOperatorIn, []string{"US", "CA"})
		require.NoError(t, err)
		sportsAd, err := fixtures.CreateTestAd(tenant.ID, low.ID, "sports-only", 20)
		require.NoError(t, err)
		_, err = fixtures.CreateTestRule(sportsAd.ID, models.RuleTypeChannel, models.RuleOperatorEquals, "sports")
		require.NoError(t, err)

		_, err = fixtures.CreateTestAd(tenant.ID, paused.ID, "paused-campaign", 15)
		require.NoError(t, err)
		_, err = fixtures.CreateTestAd(tenant.ID, 0, "no-campaign", 15)
		require.NoError(t, err)
		inactive, err := fixtures.CreateTestAd(tenant.ID, high.ID, "inactive", 15)
		require.NoError(t, err)
		require.NoError(t, testDB.DB.Model(inactive).Update("status", models.AdStatusInactive).Error)

		other, err := fixtures.CreateTestTenant()
		require.NoError(t, err)
		otherCampaign, err := fixtures.CreateTestCampaign(other.ID, models.CampaignStatusActive, 100)
		require.NoError(t, err)
		_, err = fixtures.CreateTestAd(other.ID, otherCampaign.ID, "other-tenant", 15)
		require.NoError(t, err)

		resolver := NewEligibilityResolver(repository.NewAdRepository(testDB.DB), time.UTC, logger.NewNop())

		t.Run("OrderedByCampaignPriority", func(t *testing.T) {
			ads, err := resolver.FindEligibleAds(ctx, tenant, channel, models.PositionPreRoll, "", "")
			require.NoError(t, err)
			assert.Equal(t, []uint{highAd.ID, geoAd.ID, lowFirst.ID, lowSecond.ID}, ids(ads))
			for _, ad := range ads {
				require.NotNil(t, ad.Campaign)
			}
		})

		t.Run("GeoRule", func(t *testing.T) {
			ads, err := resolver.FindEligibleAds(ctx, tenant, channel, models.PositionMidRoll, "ID", "")
			require.NoError(t, err)
			assert.NotContains(t, ids(ads), geoAd.ID)

			ads, err = resolver.FindEligibleAds(ctx, tenant, channel, models.PositionMidRoll, "us", "")
			require.NoError(t, err)
			assert.Contains(t, ids(ads), geoAd.ID)
		})

		t.Run("ChannelRule", func(t *testing.T) {
			ads, err := resolver.FindEligibleAds(ctx, tenant, sports, models.PositionPreRoll, "", "")
			require.NoError(t, err)
			assert.Contains(t, ids(ads), sportsAd.ID)
			assert.Len(t, ads, 5)
		})

		return nil
	})
	require.NoError(t, err)
}
