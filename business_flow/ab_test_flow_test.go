package businessflow

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/amirphl/fast-ads/logger"
	"github.com/amirphl/fast-ads/models"
	"github.com/amirphl/fast-ads/repository"
	testingutil "github.com/amirphl/fast-ads/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingAssignmentRepo struct{}

func (failingAssignmentRepo) ByViewer(context.Context, uint, string, string) (*models.AbTestAssignment, error) {
	return nil, errStoreDown
}

func (failingAssignmentRepo) CreateIfAbsent(context.Context, *models.AbTestAssignment) (bool, error) {
	return false, errStoreDown
}

func (failingAssignmentRepo) CountByAd(context.Context, uint) (int64, error) {
	return 0, errStoreDown
}

func variants(percentages ...int) []*models.AdVariant {
	out := make([]*models.AdVariant, 0, len(percentages))
	for i, p := range percentages {
		out = append(out, &models.AdVariant{ID: uint(i + 1), Name: fmt.Sprintf("v%d", i+1), TrafficPercentage: p})
	}
	return out
}

func TestViewerBucket(t *testing.T) {
	for _, id := range []string{"", "a", "sess-1", "device-42"} {
		b := ViewerBucket(id)
		assert.GreaterOrEqual(t, b, 0)
		assert.Less(t, b, 100)
		assert.Equal(t, b, ViewerBucket(id))
	}
	assert.Equal(t, 0, ViewerBucket(""))
}

func TestPickVariant(t *testing.T) {
	assert.Nil(t, PickVariant(nil, "viewer"))

	single := variants(10)
	assert.Equal(t, single[0], PickVariant(single, "anyone"))

	zero := variants(0, 0)
	assert.Equal(t, zero[0], PickVariant(zero, "viewer"))

	// full share on the second variant
	skewed := variants(0, 100)
	for i := range 50 {
		assert.Equal(t, uint(2), PickVariant(skewed, fmt.Sprintf("viewer-%d", i)).ID)
	}

	// 30/20 normalizes to 60/40
	split := variants(30, 20)
	for i := range 200 {
		id := fmt.Sprintf("viewer-%d", i)
		want := uint(2)
		if ViewerBucket(id) < 60 {
			want = 1
		}
		assert.Equal(t, want, PickVariant(split, id).ID, id)
	}
}

func TestPickVariant_Distribution(t *testing.T) {
	split := variants(60, 40)
	counts := map[uint]int{}
	const population = 10000
	for i := range population {
		counts[PickVariant(split, fmt.Sprintf("viewer-%d", i)).ID]++
	}

	share := float64(counts[1]) / population
	assert.InDelta(t, 0.6, share, 0.05, "counts=%v", counts)
	assert.Equal(t, population, counts[1]+counts[2])
}

func TestAbTestFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := context.Background()

		assignmentRepo := repository.NewAbTestAssignmentRepository(testDB.DB)
		variantRepo := repository.NewAdVariantRepository(testDB.DB)
		flow := NewAbTestFlow(assignmentRepo, variantRepo, testDecisionConfig(), testBreakerConfig(), logger.NewNop())

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)
		campaign, err := fixtures.CreateTestCampaign(tenant.ID, models.CampaignStatusActive, 1)
		require.NoError(t, err)

		t.Run("NoVariantsServesAd", func(t *testing.T) {
			ad, err := fixtures.CreateTestAd(tenant.ID, campaign.ID, "plain", 30)
			require.NoError(t, err)

			assert.Nil(t, flow.VariantForViewer(ctx, ad, Viewer{Identifier: "sess-1", Type: "session"}))
			count, err := assignmentRepo.CountByAd(ctx, ad.ID)
			require.NoError(t, err)
			assert.Zero(t, count)
		})

		t.Run("AssignmentIsSticky", func(t *testing.T) {
			ad, err := fixtures.CreateTestAd(tenant.ID, campaign.ID, "tested", 30)
			require.NoError(t, err)
			_, err = fixtures.CreateTestVariant(ad, "a", 60, 2)
			require.NoError(t, err)
			_, err = fixtures.CreateTestVariant(ad, "b", 40, 1)
			require.NoError(t, err)

			viewer := Viewer{Identifier: "sess-sticky", Type: "session"}
			first := flow.VariantForViewer(ctx, ad, viewer)
			require.NotNil(t, first)
			for range 5 {
				again := flow.VariantForViewer(ctx, ad, viewer)
				require.NotNil(t, again)
				assert.Equal(t, first.ID, again.ID)
			}

			// pausing the assigned variant keeps the assignment
			require.NoError(t, testDB.DB.Model(&models.AdVariant{}).Where("id = ?", first.ID).
				Update("status", models.VariantStatusPaused).Error)
			paused := flow.VariantForViewer(ctx, ad, viewer)
			require.NotNil(t, paused)
			assert.Equal(t, first.ID, paused.ID)
			assert.Equal(t, models.VariantStatusPaused, paused.Status)

			// the same identifier under another type is a different viewer
			other := flow.VariantForViewer(ctx, ad, Viewer{Identifier: "sess-sticky", Type: "device"})
			require.NotNil(t, other)
			count, err := assignmentRepo.CountByAd(ctx, ad.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(2), count)
		})

		t.Run("DeletedVariantYieldsNone", func(t *testing.T) {
			ad, err := fixtures.CreateTestAd(tenant.ID, campaign.ID, "deleted", 30)
			require.NoError(t, err)
			variant, err := fixtures.CreateTestVariant(ad, "only", 100, 1)
			require.NoError(t, err)

			viewer := Viewer{Identifier: "sess-deleted", Type: "session"}
			got := flow.VariantForViewer(ctx, ad, viewer)
			require.NotNil(t, got)
			require.Equal(t, variant.ID, got.ID)

			require.NoError(t, testDB.DB.Delete(&models.AdVariant{}, variant.ID).Error)
			assert.Nil(t, flow.VariantForViewer(ctx, ad, viewer))
		})

		t.Run("ConcurrentFirstCallsShareOneRow", func(t *testing.T) {
			ad, err := fixtures.CreateTestAd(tenant.ID, campaign.ID, "raced", 30)
			require.NoError(t, err)
			_, err = fixtures.CreateTestVariant(ad, "a", 50, 1)
			require.NoError(t, err)
			_, err = fixtures.CreateTestVariant(ad, "b", 50, 1)
			require.NoError(t, err)

			viewer := Viewer{Identifier: "sess-race", Type: "session"}
			const workers = 16
			results := make([]*models.AdVariant, workers)
			var wg sync.WaitGroup
			for i := range workers {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i] = flow.VariantForViewer(ctx, ad, viewer)
				}(i)
			}
			wg.Wait()

			require.NotNil(t, results[0])
			for _, r := range results {
				require.NotNil(t, r)
				assert.Equal(t, results[0].ID, r.ID)
			}
			count, err := assignmentRepo.CountByAd(ctx, ad.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestAbTestFlow_DegradesToNoVariant(t *testing.T) {
	flow := NewAbTestFlow(failingAssignmentRepo{}, nil, testDecisionConfig(), testBreakerConfig(), logger.NewNop())
	ad := &models.Ad{ID: 7, TenantID: 1}
	for range 5 {
		assert.Nil(t, flow.VariantForViewer(context.Background(), ad, Viewer{Identifier: "v", Type: "session"}))
	}
}
