package businessflow

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/amirphl/fast-ads/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adsWithDurations(durations ...int) []*models.Ad {
	ads := make([]*models.Ad, 0, len(durations))
	for i, d := range durations {
		ads = append(ads, &models.Ad{ID: uint(i + 1), Name: fmt.Sprintf("ad-%d", i+1), DurationSeconds: d})
	}
	return ads
}

func ids(ads []*models.Ad) []uint {
	out := make([]uint, 0, len(ads))
	for _, ad := range ads {
		out = append(out, ad.ID)
	}
	return out
}

func TestPodLimitsFor(t *testing.T) {
	assert.Equal(t, PodLimits{MinAds: 1, MaxAds: 3, MaxDurationSeconds: 90}, PodLimitsFor(nil, 90))

	cfg := &models.AdPodConfig{MinAds: 2, MaxAds: 4, MaxDurationSeconds: 60, FillStrategy: models.FillStrategyStrict}
	assert.Equal(t, PodLimits{MinAds: 2, MaxAds: 4, MaxDurationSeconds: 60}, PodLimitsFor(cfg, 90))

	zero := &models.AdPodConfig{FillStrategy: models.FillStrategyBestEffort}
	assert.Equal(t, PodLimits{MinAds: 1, MaxAds: 3, MaxDurationSeconds: 45}, PodLimitsFor(zero, 45))
}

func TestSelectForPod(t *testing.T) {
	tests := []struct {
		name      string
		durations []int
		limits    PodLimits
		expected  []uint
	}{
		{name: "empty", durations: nil, limits: PodLimits{MinAds: 1, MaxAds: 3, MaxDurationSeconds: 60}, expected: []uint{}},
		{name: "single ad fills exactly", durations: []int{30}, limits: PodLimits{MinAds: 1, MaxAds: 1, MaxDurationSeconds: 30}, expected: []uint{1}},
		{name: "skips overflowing ad", durations: []int{45, 30, 15}, limits: PodLimits{MinAds: 1, MaxAds: 3, MaxDurationSeconds: 60}, expected: []uint{1, 3}},
		{name: "stops at max ads", durations: []int{10, 10, 10, 10}, limits: PodLimits{MinAds: 1, MaxAds: 2, MaxDurationSeconds: 120}, expected: []uint{1, 2}},
		{name: "good enough exit", durations: []int{50, 10, 10}, limits: PodLimits{MinAds: 1, MaxAds: 3, MaxDurationSeconds: 60}, expected: []uint{1}},
		{name: "good enough waits for min ads", durations: []int{50, 10, 10}, limits: PodLimits{MinAds: 2, MaxAds: 3, MaxDurationSeconds: 60}, expected: []uint{1, 2}},
		{name: "nothing fits", durations: []int{90, 120}, limits: PodLimits{MinAds: 1, MaxAds: 3, MaxDurationSeconds: 60}, expected: []uint{}},
		{name: "zero duration ignored", durations: []int{0, 30}, limits: PodLimits{MinAds: 1, MaxAds: 3, MaxDurationSeconds: 30}, expected: []uint{2}},
		{name: "under min keeps what fits", durations: []int{40, 40}, limits: PodLimits{MinAds: 2, MaxAds: 3, MaxDurationSeconds: 60}, expected: []uint{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectForPod(adsWithDurations(tt.durations...), tt.limits)
			assert.Equal(t, tt.expected, ids(got))
		})
	}
}

func TestSelectForPod_StrictConfigStillFills(t *testing.T) {
	cfg := &models.AdPodConfig{MinAds: 2, MaxAds: 3, MaxDurationSeconds: 60, FillStrategy: models.FillStrategyStrict}

	got := SelectForPod(adsWithDurations(30), PodLimitsFor(cfg, 60))

	require.Len(t, got, 1)
	assert.Equal(t, uint(1), got[0].ID)
}

func TestSelectForPod_Bounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	for i := 0; i < 500; i++ {
		n := rng.IntN(8)
		durations := make([]int, n)
		for j := range durations {
			durations[j] = 5 + rng.IntN(60)
		}
		limits := PodLimits{
			MinAds:             1 + rng.IntN(3),
			MaxAds:             1 + rng.IntN(5),
			MaxDurationSeconds: 15 + rng.IntN(120),
		}

		ads := adsWithDurations(durations...)
		got := SelectForPod(ads, limits)

		require.LessOrEqual(t, TotalDuration(got), limits.MaxDurationSeconds)
		require.LessOrEqual(t, len(got), limits.MaxAds)

		fitting := 0
		budget := limits.MaxDurationSeconds
		for _, ad := range ads {
			if ad.DurationSeconds <= budget {
				fitting++
			}
		}
		// at least min(MinAds, eligible) ads whenever a first-fit pass can place that many
		want := min(limits.MinAds, limits.MaxAds, fitting)
		sum, count := 0, 0
		for _, ad := range ads {
			if count == want {
				break
			}
			if sum+ad.DurationSeconds <= budget {
				sum += ad.DurationSeconds
				count++
			}
		}
		if count == want {
			require.GreaterOrEqual(t, len(got), want, "durations=%v limits=%+v", durations, limits)
		}
	}
}
