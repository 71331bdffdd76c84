package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amirphl/fast-ads/models"
	"github.com/amirphl/fast-ads/repository"
	testingutil "github.com/amirphl/fast-ads/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdReportRepository_ReplaceDay(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := context.Background()
		repo := repository.NewAdReportRepository(testDB.DB)

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)
		campaign, err := fixtures.CreateTestCampaign(tenant.ID, models.CampaignStatusActive, 1)
		require.NoError(t, err)
		ad, err := fixtures.CreateTestAd(tenant.ID, campaign.ID, "reported", 30)
		require.NoError(t, err)

		day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
		row := func(impressions int64) *models.AdReport {
			return &models.AdReport{
				TenantID:    tenant.ID,
				AdID:        ad.ID,
				CampaignID:  &campaign.ID,
				ReportDate:  day,
				Granularity: models.ReportGranularityDaily,
				Impressions: impressions,
				CreatedAt:   day,
			}
		}
		impressions := func() []int64 {
			reports, err := repo.ByFilter(ctx, models.AdReportFilter{TenantID: &tenant.ID}, "id ASC", 0, 0)
			require.NoError(t, err)
			out := make([]int64, 0, len(reports))
			for _, r := range reports {
				out = append(out, r.Impressions)
			}
			return out
		}

		require.NoError(t, repo.ReplaceDay(ctx, day, models.ReportGranularityDaily, []*models.AdReport{row(4)}))
		assert.Equal(t, []int64{4}, impressions())

		t.Run("ReplacesExistingRows", func(t *testing.T) {
			require.NoError(t, repo.ReplaceDay(ctx, day, models.ReportGranularityDaily, []*models.AdReport{row(9)}))
			assert.Equal(t, []int64{9}, impressions())
		})

		t.Run("JoinsCallerTransaction", func(t *testing.T) {
			failure := errors.New("aggregation aborted")
			err := repository.WithTransaction(ctx, testDB.DB, func(txCtx context.Context) error {
				if err := repo.ReplaceDay(txCtx, day, models.ReportGranularityDaily, []*models.AdReport{row(1), row(2)}); err != nil {
					return err
				}
				return failure
			})
			require.ErrorIs(t, err, failure)
			assert.Equal(t, []int64{9}, impressions(), "rolled back replacement must keep previous rows")
		})

		t.Run("EmptyReportsClearsDay", func(t *testing.T) {
			require.NoError(t, repo.ReplaceDay(ctx, day, models.ReportGranularityDaily, nil))
			assert.Empty(t, impressions())
		})

		return nil
	})
	require.NoError(t, err)
}

func TestFrequencyCapRepository_RecordImpression(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := context.Background()
		repo := repository.NewFrequencyCapRepository(testDB.DB)

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)

		key := models.FrequencyCapKey{
			SubjectType:      models.CapSubjectAd,
			SubjectID:        11,
			ViewerIdentifier: "viewer-1",
			IdentifierType:   "session",
			TimeWindow:       models.TimeWindowDay,
		}
		now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
		start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 0, 1)

		first, err := repo.RecordImpression(ctx, tenant.ID, key, 3, start, end, now)
		require.NoError(t, err)
		assert.Equal(t, 1, first.ImpressionCount)

		second, err := repo.RecordImpression(ctx, tenant.ID, key, 3, start, end, now.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 2, second.ImpressionCount)

		t.Run("ExpiredWindowRestarts", func(t *testing.T) {
			next := end.Add(time.Hour)
			row, err := repo.RecordImpression(ctx, tenant.ID, key, 3, end, end.AddDate(0, 0, 1), next)
			require.NoError(t, err)
			assert.Equal(t, 1, row.ImpressionCount)
			assert.True(t, row.WindowStart.Equal(end))
		})

		t.Run("RolledBackWithCaller", func(t *testing.T) {
			failure := errors.New("decision aborted")
			err := repository.WithTransaction(ctx, testDB.DB, func(txCtx context.Context) error {
				row, err := repo.RecordImpression(txCtx, tenant.ID, key, 3, end, end.AddDate(0, 0, 1), end.Add(2*time.Hour))
				require.NoError(t, err)
				assert.Equal(t, 2, row.ImpressionCount)
				return failure
			})
			require.ErrorIs(t, err, failure)

			stored, err := repo.ByKey(ctx, key)
			require.NoError(t, err)
			require.NotNil(t, stored)
			assert.Equal(t, 1, stored.ImpressionCount)
		})

		return nil
	})
	require.NoError(t, err)
}
