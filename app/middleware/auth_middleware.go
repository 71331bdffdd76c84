// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/amirphl/fast-ads/app/dto"
	businessflow "github.com/amirphl/fast-ads/business_flow"
	"github.com/amirphl/fast-ads/config"
	"github.com/amirphl/fast-ads/logger"
	"github.com/amirphl/fast-ads/models"
	"github.com/amirphl/fast-ads/utils"
	"github.com/gofiber/fiber/v3"
	"golang.org/x/time/rate"
)

const (
	tenantLocalsKey   = "tenant"
	tenantIDLocalsKey = "tenant_id"

	defaultAPIKeyHeader = "X-API-Key"
	authTimeout         = 2 * time.Second
)

// AuthMiddleware authenticates tenants by API key and applies their request quota
type AuthMiddleware struct {
	tenants    businessflow.TenantFlow
	header     string
	rateLimits bool
	log        *logger.Logger

	mu       sync.Mutex
	limiters map[uint]*tenantLimiter
}

type tenantLimiter struct {
	perMinute int
	limiter   *rate.Limiter
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tenants businessflow.TenantFlow, cfg config.SecurityConfig, log *logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		tenants:    tenants,
		header:     utils.StringOr(cfg.APIKeyHeader, defaultAPIKeyHeader),
		rateLimits: cfg.TenantRateLimits,
		log:        log,
		limiters:   make(map[uint]*tenantLimiter),
	}
}

// Authenticate resolves the tenant owning the API key header and stores it in the request locals
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		apiKey := c.Get(m.header)
		if apiKey == "" {
			return unauthorized(c, "API key is required")
		}

		ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
		defer cancel()

		tenant, err := m.tenants.Authenticate(ctx, apiKey)
		if err != nil {
			if businessflow.IsInvalidAPIKey(err) {
				return unauthorized(c, "Invalid or inactive API key")
			}
			m.log.Error("API key authentication failed", "path", c.Path(), "error", err.Error())
			return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
				Success: false,
				Message: "Authentication failed",
				Error:   dto.ErrorDetail{Code: "INTERNAL_ERROR"},
			})
		}

		if m.rateLimits && !m.allow(tenant) {
			c.Set(fiber.HeaderRetryAfter, "60")
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Tenant rate limit exceeded. Please try again later.",
				Error:   dto.ErrorDetail{Code: "RATE_LIMIT_EXCEEDED"},
			})
		}

		c.Locals(tenantLocalsKey, tenant)
		c.Locals(tenantIDLocalsKey, tenant.ID)

		return c.Next()
	}
}

// allow takes one token from the tenant's bucket. The bucket holds a minute of
// requests and is rebuilt when the tenant's quota changes.
func (m *AuthMiddleware) allow(tenant *models.Tenant) bool {
	perMinute := tenant.RateLimitPerMinute
	if perMinute <= 0 {
		return true
	}

	m.mu.Lock()
	tl, ok := m.limiters[tenant.ID]
	if !ok || tl.perMinute != perMinute {
		tl = &tenantLimiter{
			perMinute: perMinute,
			limiter:   rate.NewLimiter(rate.Limit(float64(perMinute)/60), perMinute),
		}
		m.limiters[tenant.ID] = tl
	}
	m.mu.Unlock()

	return tl.limiter.Allow()
}

func unauthorized(c fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: "INVALID_API_KEY"},
	})
}

// GetTenantFromContext extracts the authenticated tenant from the request context
func GetTenantFromContext(c fiber.Ctx) (*models.Tenant, bool) {
	tenant, ok := c.Locals(tenantLocalsKey).(*models.Tenant)
	return tenant, ok && tenant != nil
}

// GetTenantIDFromContext extracts the authenticated tenant id from the request context
func GetTenantIDFromContext(c fiber.Ctx) (uint, bool) {
	tenantID, ok := c.Locals(tenantIDLocalsKey).(uint)
	return tenantID, ok
}
