package businessflow

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/amirphl/fast-ads/logger"
	"github.com/amirphl/fast-ads/models"
	"github.com/amirphl/fast-ads/repository"
	"github.com/amirphl/fast-ads/utils"
)

// EligibilityResolver lists the ads that may fill a break
type EligibilityResolver interface {
	// FindEligibleAds returns the tenant's serving ads whose rules match, highest campaign priority first.
	// Ads of equal priority keep id order.
	FindEligibleAds(ctx context.Context, tenant *models.Tenant, channel *models.Channel, position models.PositionType, geo, device string) ([]*models.Ad, error)
}

type EligibilityResolverImpl struct {
	adRepo   repository.AdRepository
	location *time.Location
	log      *logger.Logger
	now      func() time.Time
}

func NewEligibilityResolver(adRepo repository.AdRepository, location *time.Location, log *logger.Logger) *EligibilityResolverImpl {
	if location == nil {
		location = time.UTC
	}
	return &EligibilityResolverImpl{
		adRepo:   adRepo,
		location: location,
		log:      log,
		now:      utils.UTCNow,
	}
}

func (e *EligibilityResolverImpl) FindEligibleAds(
	ctx context.Context,
	tenant *models.Tenant,
	channel *models.Channel,
	position models.PositionType,
	geo, device string,
) ([]*models.Ad, error) {
	candidates, err := e.adRepo.ListServing(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("list serving ads: %w", err)
	}

	rc := RuleContext{
		Geo:         geo,
		Device:      device,
		ChannelSlug: channel.Slug,
		Now:         e.now().In(e.location),
	}

	eligible := make([]*models.Ad, 0, len(candidates))
	for _, ad := range candidates {
		if !ad.Campaign.IsServing() {
			continue
		}
		if rejected, ok := firstFailingRule(ad.Rules, rc); ok {
			e.log.Debug("Ad rejected by rule",
				"ad_id", ad.ID,
				"rule_type", rejected.RuleType,
				"rule_operator", rejected.RuleOperator,
				"channel", channel.Slug,
				"position", position)
			continue
		}
		eligible = append(eligible, ad)
	}

	slices.SortStableFunc(eligible, func(a, b *models.Ad) int {
		return b.Campaign.Priority - a.Campaign.Priority
	})

	e.log.Debug("Eligible ads resolved",
		"tenant_id", tenant.ID,
		"channel", channel.Slug,
		"position", position,
		"candidates", len(candidates),
		"eligible", len(eligible))
	return eligible, nil
}

func firstFailingRule(rules []models.AdRule, rc RuleContext) (models.AdRule, bool) {
	for _, rule := range rules {
		if !MatchRule(rule, rc) {
			return rule, true
		}
	}
	return models.AdRule{}, false
}
