package businessflow

import (
	"context"
	"testing"

	"github.com/amirphl/fast-ads/cache"
	"github.com/amirphl/fast-ads/logger"
	"github.com/amirphl/fast-ads/models"
	"github.com/amirphl/fast-ads/repository"
	testingutil "github.com/amirphl/fast-ads/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenantFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := context.Background()

		store := cache.NewMemoryStore(0)
		defer store.Close()
		flow := NewTenantFlow(repository.NewTenantRepository(testDB.DB), repository.NewChannelRepository(testDB.DB), store, logger.NewNop())

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)
		channel, err := fixtures.CreateTestChannel(tenant.ID, "news")
		require.NoError(t, err)
		offAir, err := fixtures.CreateTestChannel(tenant.ID, "off-air")
		require.NoError(t, err)
		require.NoError(t, testDB.DB.Model(offAir).Update("status", models.ChannelStatusInactive).Error)

		t.Run("Authenticate", func(t *testing.T) {
			got, err := flow.Authenticate(ctx, tenant.APIKey)
			require.NoError(t, err)
			assert.Equal(t, tenant.ID, got.ID)
			assert.Equal(t, tenant.Slug, got.Slug)

			// second call is answered from the cache
			before := store.Stats()
			_, err = flow.Authenticate(ctx, tenant.APIKey)
			require.NoError(t, err)
			assert.Equal(t, before.Hits+1, store.Stats().Hits)

			_, err = flow.Authenticate(ctx, "")
			assert.True(t, IsInvalidAPIKey(err))
			_, err = flow.Authenticate(ctx, "unknown-key")
			assert.True(t, IsInvalidAPIKey(err))
		})

		t.Run("SuspendedTenantRejected", func(t *testing.T) {
			suspended, err := fixtures.CreateTestTenant()
			require.NoError(t, err)
			require.NoError(t, testDB.DB.Model(suspended).Update("status", models.TenantStatusSuspended).Error)

			_, err = flow.Authenticate(ctx, suspended.APIKey)
			assert.True(t, IsInvalidAPIKey(err))
		})

		t.Run("ChannelInfo", func(t *testing.T) {
			info, err := flow.ChannelInfo(ctx, tenant, tenant.Slug, "news")
			require.NoError(t, err)
			assert.Equal(t, channel.ID, info.ID)
			assert.Equal(t, tenant.ID, info.TenantID)
			assert.Equal(t, channel.HLSManifestURL, info.HLSManifestURL)
			assert.Equal(t, "static", info.AdBreakStrategy)
			assert.Equal(t, 360, info.AdBreakIntervalSeconds)
			assert.Equal(t, "active", info.Status)

			_, err = flow.ChannelInfo(ctx, tenant, "other-tenant", "news")
			assert.True(t, IsTenantNotFound(err))

			_, err = flow.ChannelInfo(ctx, tenant, tenant.Slug, "off-air")
			assert.True(t, IsChannelNotFound(err))

			_, err = flow.ChannelInfo(ctx, tenant, tenant.Slug, "missing")
			assert.True(t, IsChannelNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}
