// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/amirphl/fast-ads/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	Count(ctx context.Context, filter F) (int64, error)
}

// TenantRepository defines operations for tenants
type TenantRepository interface {
	Repository[models.Tenant, models.TenantFilter]
	BySlug(ctx context.Context, slug string) (*models.Tenant, error)
	ByAPIKey(ctx context.Context, apiKey string) (*models.Tenant, error)
}

// ChannelRepository defines operations for channels
type ChannelRepository interface {
	Repository[models.Channel, models.ChannelFilter]
	BySlug(ctx context.Context, tenantID uint, slug string) (*models.Channel, error)
}

// AdBreakRepository defines operations for scheduled ad breaks
type AdBreakRepository interface {
	Repository[models.AdBreak, models.AdBreakFilter]
	ListActiveByChannel(ctx context.Context, channelID uint) ([]*models.AdBreak, error)
}

// AdRepository defines operations for ads
type AdRepository interface {
	Repository[models.Ad, models.AdFilter]
	ByTenantAndID(ctx context.Context, tenantID, adID uint) (*models.Ad, error)
	ListServing(ctx context.Context, tenantID uint) ([]*models.Ad, error)
}

// AdPodConfigRepository defines operations for pod constraints
type AdPodConfigRepository interface {
	Resolve(ctx context.Context, tenantID, channelID uint, position models.PositionType) (*models.AdPodConfig, error)
	Save(ctx context.Context, entity *models.AdPodConfig) error
}

// AdVariantRepository defines operations for A/B variants
type AdVariantRepository interface {
	ListActiveByAd(ctx context.Context, adID uint) ([]*models.AdVariant, error)
	ByTenantAndID(ctx context.Context, tenantID, variantID uint) (*models.AdVariant, error)
	Save(ctx context.Context, entity *models.AdVariant) error
}

// AbTestAssignmentRepository defines operations for sticky variant assignments
type AbTestAssignmentRepository interface {
	ByViewer(ctx context.Context, adID uint, viewerIdentifier, identifierType string) (*models.AbTestAssignment, error)
	// CreateIfAbsent inserts the assignment unless one exists for the same viewer; it reports whether this call won
	CreateIfAbsent(ctx context.Context, assignment *models.AbTestAssignment) (bool, error)
	CountByAd(ctx context.Context, adID uint) (int64, error)
}

// FrequencyCapRepository defines operations for impression counters
type FrequencyCapRepository interface {
	ByKey(ctx context.Context, key models.FrequencyCapKey) (*models.FrequencyCap, error)
	// RecordImpression increments the counter, restarting it inside [start, end) when now is outside the stored window
	RecordImpression(ctx context.Context, tenantID uint, key models.FrequencyCapKey, maxImpressions int, start, end, now time.Time) (*models.FrequencyCap, error)
}

// TrackingEventRepository defines operations for raw tracking events
type TrackingEventRepository interface {
	Repository[models.TrackingEvent, models.TrackingEventFilter]
	// EachInRange walks events with from <= timestamp < to in id order, batch by batch
	EachInRange(ctx context.Context, from, to time.Time, batchSize int, fn func([]*models.TrackingEvent) error) error
}

// AdDecisionLogRepository defines operations for decision audit rows
type AdDecisionLogRepository interface {
	Save(ctx context.Context, entity *models.AdDecisionLog) error
	CountByTenant(ctx context.Context, tenantID uint) (int64, error)
}

// AdReportRepository defines operations for report rollups
type AdReportRepository interface {
	ByFilter(ctx context.Context, filter models.AdReportFilter, orderBy string, limit, offset int) ([]*models.AdReport, error)
	// ReplaceDay swaps every row of the given day and granularity for reports
	ReplaceDay(ctx context.Context, day time.Time, granularity models.ReportGranularity, reports []*models.AdReport) error
}
