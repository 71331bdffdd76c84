package businessflow

import (
	"context"
	"hash/crc32"
	"time"

	"github.com/amirphl/fast-ads/config"
	"github.com/amirphl/fast-ads/logger"
	"github.com/amirphl/fast-ads/models"
	"github.com/amirphl/fast-ads/repository"
	"github.com/amirphl/fast-ads/utils"
	"github.com/sony/gobreaker/v2"
)

// AbTestFlow assigns viewers to ad variants
type AbTestFlow interface {
	// VariantForViewer returns the viewer's sticky variant of ad, assigning one on first use.
	// nil means serve the ad itself: the ad has no active variants, the assigned variant was
	// deleted, or the assignment store is unavailable.
	VariantForViewer(ctx context.Context, ad *models.Ad, viewer Viewer) *models.AdVariant
}

type AbTestFlowImpl struct {
	assignmentRepo repository.AbTestAssignmentRepository
	variantRepo    repository.AdVariantRepository
	breaker        *gobreaker.CircuitBreaker[*models.AdVariant]
	timeout        time.Duration
	log            *logger.Logger
	now            func() time.Time
}

func NewAbTestFlow(
	assignmentRepo repository.AbTestAssignmentRepository,
	variantRepo repository.AdVariantRepository,
	decisionCfg config.DecisionConfig,
	breakerCfg config.BreakerConfig,
	log *logger.Logger,
) *AbTestFlowImpl {
	timeout := decisionCfg.StoreTimeout
	if timeout <= 0 {
		timeout = utils.StoreTimeout
	}
	return &AbTestFlowImpl{
		assignmentRepo: assignmentRepo,
		variantRepo:    variantRepo,
		breaker:        newStoreBreaker[*models.AdVariant](storeAbTest, breakerCfg, log),
		timeout:        timeout,
		log:            log,
		now:            utils.UTCNow,
	}
}

func (f *AbTestFlowImpl) VariantForViewer(ctx context.Context, ad *models.Ad, viewer Viewer) *models.AdVariant {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	variant, err := f.breaker.Execute(func() (*models.AdVariant, error) {
		return f.lookupOrAssign(ctx, ad, viewer)
	})
	if err != nil {
		degraded(f.log, storeAbTest, err, "ad_id", ad.ID)
		return nil
	}
	return variant
}

func (f *AbTestFlowImpl) lookupOrAssign(ctx context.Context, ad *models.Ad, viewer Viewer) (*models.AdVariant, error) {
	existing, err := f.assignmentRepo.ByViewer(ctx, ad.ID, viewer.Identifier, viewer.Type)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		// honored even when the variant is no longer active
		return existing.Variant, nil
	}

	variants, err := f.variantRepo.ListActiveByAd(ctx, ad.ID)
	if err != nil {
		return nil, err
	}
	chosen := PickVariant(variants, viewer.Identifier)
	if chosen == nil {
		return nil, nil
	}

	won, err := f.assignmentRepo.CreateIfAbsent(ctx, &models.AbTestAssignment{
		TenantID:         ad.TenantID,
		AdID:             ad.ID,
		VariantID:        chosen.ID,
		ViewerIdentifier: viewer.Identifier,
		IdentifierType:   viewer.Type,
		AssignedAt:       f.now(),
		CreatedAt:        f.now(),
	})
	if err != nil {
		return nil, err
	}
	if won {
		return chosen, nil
	}

	// another request assigned this viewer first; its row is authoritative
	winner, err := f.assignmentRepo.ByViewer(ctx, ad.ID, viewer.Identifier, viewer.Type)
	if err != nil {
		return nil, err
	}
	if winner == nil {
		return chosen, nil
	}
	f.log.Debug("Lost variant assignment race", "ad_id", ad.ID, "variant_id", winner.VariantID)
	return winner.Variant, nil
}

// ViewerBucket maps a viewer identifier to [0, 100) with CRC-32 (IEEE)
func ViewerBucket(viewerIdentifier string) int {
	return int(crc32.ChecksumIEEE([]byte(viewerIdentifier)) % 100)
}

// PickVariant walks variants in order, accumulating traffic shares normalized to 100,
// and returns the first whose cumulative share exceeds the viewer's bucket.
// It falls back to the first variant, and returns nil only for an empty list.
func PickVariant(variants []*models.AdVariant, viewerIdentifier string) *models.AdVariant {
	if len(variants) == 0 {
		return nil
	}

	total := 0
	for _, v := range variants {
		total += max(v.TrafficPercentage, 0)
	}
	if total == 0 {
		return variants[0]
	}

	bucket := float64(ViewerBucket(viewerIdentifier))
	cumulative := 0.0
	for _, v := range variants {
		cumulative += float64(max(v.TrafficPercentage, 0)) * 100 / float64(total)
		if bucket < cumulative {
			return v
		}
	}
	return variants[0]
}
