package businessflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/fast-ads/app/dto"
	"github.com/amirphl/fast-ads/cache"
	"github.com/amirphl/fast-ads/logger"
	"github.com/amirphl/fast-ads/models"
	"github.com/amirphl/fast-ads/repository"
)

// tenantCacheTTL bounds how long a suspended tenant keeps passing authentication
const tenantCacheTTL = 30 * time.Second

// TenantFlow authenticates API callers and serves tenant-scoped channel lookups
type TenantFlow interface {
	// Authenticate resolves the active tenant owning apiKey
	Authenticate(ctx context.Context, apiKey string) (*models.Tenant, error)
	// ChannelInfo returns the channel configuration read by the stitching service
	ChannelInfo(ctx context.Context, tenant *models.Tenant, tenantSlug, channelSlug string) (*dto.ChannelInfoResponse, error)
}

type TenantFlowImpl struct {
	tenantRepo  repository.TenantRepository
	channelRepo repository.ChannelRepository
	cache       cache.Store
	log         *logger.Logger
}

// NewTenantFlow creates the tenant flow. A nil store disables the authentication cache.
func NewTenantFlow(
	tenantRepo repository.TenantRepository,
	channelRepo repository.ChannelRepository,
	store cache.Store,
	log *logger.Logger,
) *TenantFlowImpl {
	return &TenantFlowImpl{
		tenantRepo:  tenantRepo,
		channelRepo: channelRepo,
		cache:       store,
		log:         log,
	}
}

func (f *TenantFlowImpl) Authenticate(ctx context.Context, apiKey string) (*models.Tenant, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrInvalidAPIKey
	}

	key := tenantCacheKey(apiKey)
	if f.cache != nil {
		var cached models.Tenant
		found, err := cache.GetJSON(ctx, f.cache, key, &cached)
		if err != nil {
			f.log.Debug("Tenant cache read failed", "error", err.Error())
		} else if found {
			return &cached, nil
		}
	}

	tenant, err := f.tenantRepo.ByAPIKey(ctx, apiKey)
	if err != nil {
		return nil, NewBusinessError("TENANT_LOOKUP_FAILED", "Tenant lookup failed", err)
	}
	if tenant == nil || !tenant.IsActive() {
		return nil, ErrInvalidAPIKey
	}

	if f.cache != nil {
		if err := cache.SetJSON(ctx, f.cache, key, tenant, tenantCacheTTL); err != nil {
			f.log.Debug("Tenant cache write failed", "tenant_id", tenant.ID, "error", err.Error())
		}
	}
	return tenant, nil
}

func (f *TenantFlowImpl) ChannelInfo(ctx context.Context, tenant *models.Tenant, tenantSlug, channelSlug string) (resp *dto.ChannelInfoResponse, err error) {
	defer func() {
		if err != nil {
			err = NewBusinessError("CHANNEL_INFO_FAILED", "Channel lookup failed", err)
		}
	}()

	if !tenant.IsActive() || tenant.Slug != tenantSlug {
		return nil, ErrTenantNotFound
	}

	channel, err := f.channelRepo.BySlug(ctx, tenant.ID, channelSlug)
	if err != nil {
		return nil, fmt.Errorf("load channel: %w", err)
	}
	if channel == nil || channel.Status != models.ChannelStatusActive {
		return nil, ErrChannelNotFound
	}

	info := ToChannelInfoDTO(*channel)
	return &info, nil
}

// tenantCacheKey never embeds the raw key
func tenantCacheKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return "tenant_api_key:" + hex.EncodeToString(sum[:])
}
