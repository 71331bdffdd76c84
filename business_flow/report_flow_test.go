package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/fast-ads/logger"
	"github.com/amirphl/fast-ads/models"
	"github.com/amirphl/fast-ads/repository"
	testingutil "github.com/amirphl/fast-ads/testing"
	"github.com/amirphl/fast-ads/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0.0, percentage(3, 0))
	assert.Equal(t, 50.0, percentage(1, 2))
	assert.Equal(t, 33.33, percentage(1, 3))
	assert.Equal(t, 66.67, percentage(2, 3))
	assert.Equal(t, 100.0, percentage(7, 7))
}

func TestReportFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := context.Background()

		reportRepo := repository.NewAdReportRepository(testDB.DB)
		flow := NewReportFlow(repository.NewTrackingEventRepository(testDB.DB), reportRepo, time.UTC, logger.NewNop())

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)
		campaign, err := fixtures.CreateTestCampaign(tenant.ID, models.CampaignStatusActive, 1)
		require.NoError(t, err)
		ad, err := fixtures.CreateTestAd(tenant.ID, campaign.ID, "reported", 30)
		require.NoError(t, err)
		variant, err := fixtures.CreateTestVariant(ad, "b", 50, 1)
		require.NoError(t, err)

		day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
		at := func(h int) time.Time { return day.Add(time.Duration(h) * time.Hour) }

		for i, session := range []string{"a", "b", "a", "c"} {
			_, err := fixtures.CreateTestTrackingEvent(ad, models.EventTypeImpression, session, at(i+1))
			require.NoError(t, err)
		}
		for i := range 3 {
			_, err := fixtures.CreateTestTrackingEvent(ad, models.EventTypeStart, "a", at(i+5))
			require.NoError(t, err)
		}
		for i, duration := range []string{`{"duration":30}`, `{"duration":15}`} {
			require.NoError(t, testDB.DB.Create(&models.TrackingEvent{
				TenantID:   tenant.ID,
				AdID:       ad.ID,
				CampaignID: ad.CampaignID,
				EventType:  models.EventTypeComplete,
				SessionID:  utils.ToPtr("a"),
				Metadata:   datatypes.JSON(duration),
				Timestamp:  at(i + 10),
				CreatedAt:  utils.UTCNow(),
			}).Error)
		}
		_, err = fixtures.CreateTestTrackingEvent(ad, models.EventTypeClick, "b", at(12))
		require.NoError(t, err)

		require.NoError(t, testDB.DB.Create(&models.TrackingEvent{
			TenantID:   tenant.ID,
			AdID:       ad.ID,
			CampaignID: ad.CampaignID,
			VariantID:  &variant.ID,
			EventType:  models.EventTypeImpression,
			SessionID:  utils.ToPtr("d"),
			Timestamp:  at(13),
			CreatedAt:  utils.UTCNow(),
		}).Error)

		// next day
		_, err = fixtures.CreateTestTrackingEvent(ad, models.EventTypeImpression, "e", day.AddDate(0, 0, 1).Add(time.Minute))
		require.NoError(t, err)

		dayReports := func(t *testing.T, d time.Time) []*models.AdReport {
			from := d
			to := d.AddDate(0, 0, 1)
			rows, err := reportRepo.ByFilter(ctx, models.AdReportFilter{TenantID: &tenant.ID, From: &from, To: &to}, "id ASC", 0, 0)
			require.NoError(t, err)
			return rows
		}

		t.Run("AggregateDay", func(t *testing.T) {
			written, err := flow.AggregateDay(ctx, day.Add(15*time.Hour))
			require.NoError(t, err)
			assert.Equal(t, 2, written)

			rows := dayReports(t, day)
			require.Len(t, rows, 2)

			base := rows[0]
			if base.VariantID != nil {
				base = rows[1]
			}
			assert.Nil(t, base.VariantID)
			assert.Equal(t, int64(4), base.Impressions)
			assert.Equal(t, int64(3), base.Starts)
			assert.Equal(t, int64(2), base.Completions)
			assert.Equal(t, int64(1), base.Clicks)
			assert.Equal(t, int64(3), base.UniqueViewers)
			assert.Equal(t, int64(45), base.TotalDurationWatched)
			assert.InDelta(t, 50.0, base.CompletionRate, 0.001)
			assert.InDelta(t, 25.0, base.ClickThroughRate, 0.001)
			require.NotNil(t, base.CampaignID)
			assert.Equal(t, campaign.ID, *base.CampaignID)
		})

		t.Run("RerunOverwrites", func(t *testing.T) {
			_, err := flow.AggregateDay(ctx, day)
			require.NoError(t, err)
			_, err = flow.AggregateDay(ctx, day)
			require.NoError(t, err)
			assert.Len(t, dayReports(t, day), 2)
		})

		t.Run("AggregateRange", func(t *testing.T) {
			written, err := flow.AggregateRange(ctx, day, day.AddDate(0, 0, 1))
			require.NoError(t, err)
			assert.Equal(t, 3, written)
			assert.Len(t, dayReports(t, day.AddDate(0, 0, 1)), 1)

			_, err = flow.AggregateRange(ctx, day, day.AddDate(0, 0, -1))
			assert.True(t, IsInvalidReportRange(err))
		})

		t.Run("LocalCalendarDay", func(t *testing.T) {
			jakarta, err := utils.LoadLocation("Asia/Jakarta")
			require.NoError(t, err)
			local := NewReportFlow(repository.NewTrackingEventRepository(testDB.DB), reportRepo, jakarta, logger.NewNop())

			// 2025-03-01 in Jakarta starts at 2025-02-28T17:00Z
			_, err = fixtures.CreateTestTrackingEvent(ad, models.EventTypeImpression, "f", day.Add(-6*time.Hour))
			require.NoError(t, err)

			written, err := local.AggregateDay(ctx, time.Date(2025, 3, 1, 12, 0, 0, 0, jakarta))
			require.NoError(t, err)
			assert.Equal(t, 2, written)

			rows := dayReports(t, day)
			require.Len(t, rows, 2)
			for _, r := range rows {
				if r.VariantID == nil {
					assert.Equal(t, int64(5), r.Impressions)
					assert.Equal(t, int64(4), r.UniqueViewers)
					assert.Equal(t, int64(1), r.Clicks)
				}
			}
		})

		return nil
	})
	require.NoError(t, err)
}
