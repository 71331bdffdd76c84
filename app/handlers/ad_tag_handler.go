package handlers

import (
	"context"

	"github.com/amirphl/fast-ads/app/dto"
	"github.com/amirphl/fast-ads/app/middleware"
	businessflow "github.com/amirphl/fast-ads/business_flow"
	"github.com/amirphl/fast-ads/logger"
	"github.com/amirphl/fast-ads/models"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// AdTagHandlerInterface defines the contract for the VMAP and VAST endpoints
type AdTagHandlerInterface interface {
	VMAP(c fiber.Ctx) error
	VAST(c fiber.Ctx) error
}

// AdTagHandler serves ad tags to client-side players
type AdTagHandler struct {
	adTagFlow businessflow.AdTagFlow
	validator *validator.Validate
	log       *logger.Logger
}

// NewAdTagHandler creates a new ad tag handler
func NewAdTagHandler(adTagFlow businessflow.AdTagFlow, log *logger.Logger) AdTagHandlerInterface {
	return &AdTagHandler{
		adTagFlow: adTagFlow,
		validator: validator.New(),
		log:       log,
	}
}

type renderFunc func(ctx context.Context, tenant *models.Tenant, tenantSlug, channelSlug string, req *dto.AdTagRequest) ([]byte, error)

// VMAP lists a channel's ad breaks
// @Summary VMAP Playlist
// @Description Render the channel's scheduled ad breaks as VMAP 1.0, each pointing at the VAST endpoint
// @Tags Ads
// @Produce xml
// @Security ApiKeyAuth
// @Param tenant_slug path string true "Tenant slug"
// @Param channel_slug path string true "Channel slug"
// @Param geo query string false "ISO 3166-1 alpha-2 country"
// @Param device query string false "Device type"
// @Success 200 {string} string "VMAP document"
// @Failure 401 {object} dto.APIResponse "Invalid API key"
// @Failure 404 {object} dto.APIResponse "Tenant or channel not found"
// @Failure 422 {object} dto.APIResponse "Validation error"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/ads/vmap/{tenant_slug}/{channel_slug} [get]
func (h *AdTagHandler) VMAP(c fiber.Ctx) error {
	return h.render(c, "/api/v1/ads/vmap", businessflow.VMAPContentType, h.adTagFlow.GenerateVMAP)
}

// VAST decides and renders one pod
// @Summary VAST Ad Tag
// @Description Decide a pod for the requested position and render it as VAST 3.0. An empty pod renders an empty VAST document.
// @Tags Ads
// @Produce xml
// @Security ApiKeyAuth
// @Param tenant_slug path string true "Tenant slug"
// @Param channel_slug path string true "Channel slug"
// @Param position query string false "pre-roll, mid-roll or post-roll (default pre-roll)"
// @Param geo query string false "ISO 3166-1 alpha-2 country"
// @Param device query string false "Device type"
// @Param viewer_identifier query string false "Viewer identifier for frequency caps and A/B tests"
// @Param identifier_type query string false "session, device or user (default session)"
// @Success 200 {string} string "VAST document"
// @Failure 401 {object} dto.APIResponse "Invalid API key"
// @Failure 404 {object} dto.APIResponse "Tenant or channel not found"
// @Failure 422 {object} dto.APIResponse "Validation error"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/ads/vast/{tenant_slug}/{channel_slug} [get]
func (h *AdTagHandler) VAST(c fiber.Ctx) error {
	return h.render(c, "/api/v1/ads/vast", businessflow.VASTContentType, h.adTagFlow.GenerateVAST)
}

func (h *AdTagHandler) render(c fiber.Ctx, endpoint, contentType string, generate renderFunc) error {
	var req dto.AdTagRequest
	if err := c.Bind().Query(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return validationFailed(c, err)
	}

	tenant, ok := middleware.GetTenantFromContext(c)
	if !ok {
		return ErrorResponse(c, fiber.StatusUnauthorized, "Tenant not found in context", "INVALID_API_KEY", nil)
	}

	tenantSlug := c.Params("tenant_slug")
	channelSlug := c.Params("channel_slug")

	ctx, cancel := createRequestContext(c, endpoint)
	defer cancel()

	body, err := generate(ctx, tenant, tenantSlug, channelSlug, &req)
	if err != nil {
		switch {
		case businessflow.IsTenantNotFound(err):
			return ErrorResponse(c, fiber.StatusNotFound, "Tenant not found", "TENANT_NOT_FOUND", nil)
		case businessflow.IsChannelNotFound(err):
			return ErrorResponse(c, fiber.StatusNotFound, "Channel not found or inactive", "CHANNEL_NOT_FOUND", nil)
		case businessflow.IsValidationError(err):
			return ErrorResponse(c, fiber.StatusUnprocessableEntity, "Validation failed", "VALIDATION_ERROR", []string{err.Error()})
		}

		h.log.Error("Ad tag rendering failed",
			"endpoint", endpoint,
			"tenant_id", tenant.ID,
			"channel", channelSlug,
			"error", err.Error())
		return ErrorResponse(c, fiber.StatusInternalServerError, "Ad tag rendering failed", "INTERNAL_ERROR", nil)
	}

	c.Set(fiber.HeaderContentType, contentType+"; charset=utf-8")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Status(fiber.StatusOK).Send(body)
}
