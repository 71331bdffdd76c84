package businessflow

import (
	"github.com/amirphl/fast-ads/models"
	"github.com/amirphl/fast-ads/utils"
)

// PodLimits bounds one pod
type PodLimits struct {
	MinAds             int
	MaxAds             int
	MaxDurationSeconds int
}

// PodLimitsFor applies the pod config to the requested break duration.
// Without a config the pod holds 1 to 3 ads within the requested duration.
// The fill strategy is stored with the config but does not change selection.
func PodLimitsFor(cfg *models.AdPodConfig, requestedDurationSeconds int) PodLimits {
	limits := PodLimits{
		MinAds:             utils.DefaultPodMinAds,
		MaxAds:             utils.DefaultPodMaxAds,
		MaxDurationSeconds: requestedDurationSeconds,
	}
	if cfg == nil {
		return limits
	}

	if cfg.MinAds > 0 {
		limits.MinAds = cfg.MinAds
	}
	if cfg.MaxAds > 0 {
		limits.MaxAds = cfg.MaxAds
	}
	if cfg.MaxDurationSeconds > 0 {
		limits.MaxDurationSeconds = cfg.MaxDurationSeconds
	}
	return limits
}

// SelectForPod fills a pod first-fit in eligibility order. Ads that would overflow the duration
// budget are skipped. Filling stops at MaxAds, or once MinAds are in and the pod uses at least
// PodGoodEnoughRatio of the budget.
func SelectForPod(ads []*models.Ad, limits PodLimits) []*models.Ad {
	if len(ads) == 0 {
		return nil
	}

	selected := make([]*models.Ad, 0, limits.MaxAds)
	total := 0
	goodEnough := float64(limits.MaxDurationSeconds) * utils.PodGoodEnoughRatio

	for _, ad := range ads {
		if len(selected) >= limits.MaxAds {
			break
		}
		if ad.DurationSeconds <= 0 || total+ad.DurationSeconds > limits.MaxDurationSeconds {
			continue
		}

		selected = append(selected, ad)
		total += ad.DurationSeconds

		if len(selected) >= limits.MinAds && float64(total) >= goodEnough {
			break
		}
	}

	return selected
}

// TotalDuration sums the durations of a pod
func TotalDuration(ads []*models.Ad) int {
	total := 0
	for _, ad := range ads {
		total += ad.DurationSeconds
	}
	return total
}
