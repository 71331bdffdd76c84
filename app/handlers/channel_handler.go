package handlers

import (
	"github.com/amirphl/fast-ads/app/middleware"
	businessflow "github.com/amirphl/fast-ads/business_flow"
	"github.com/amirphl/fast-ads/logger"
	"github.com/gofiber/fiber/v3"
)

// ChannelHandlerInterface defines the contract for channel handlers
type ChannelHandlerInterface interface {
	GetChannel(c fiber.Ctx) error
}

type ChannelHandler struct {
	tenantFlow businessflow.TenantFlow
	log        *logger.Logger
}

// NewChannelHandler creates a new channel handler
func NewChannelHandler(tenantFlow businessflow.TenantFlow, log *logger.Logger) ChannelHandlerInterface {
	return &ChannelHandler{
		tenantFlow: tenantFlow,
		log:        log,
	}
}

// GetChannel returns the configuration of one channel
// @Summary Channel Info
// @Description Channel configuration read by the stitching service
// @Tags Channels
// @Produce json
// @Security ApiKeyAuth
// @Param tenant_slug path string true "Tenant slug"
// @Param channel_slug path string true "Channel slug"
// @Success 200 {object} dto.APIResponse{data=dto.ChannelInfoResponse} "Channel found"
// @Failure 401 {object} dto.APIResponse "Invalid API key"
// @Failure 404 {object} dto.APIResponse "Tenant or channel not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/channels/{tenant_slug}/{channel_slug} [get]
func (h *ChannelHandler) GetChannel(c fiber.Ctx) error {
	tenant, ok := middleware.GetTenantFromContext(c)
	if !ok {
		return ErrorResponse(c, fiber.StatusUnauthorized, "Tenant not found in context", "INVALID_API_KEY", nil)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/channels")
	defer cancel()

	info, err := h.tenantFlow.ChannelInfo(ctx, tenant, c.Params("tenant_slug"), c.Params("channel_slug"))
	if err != nil {
		switch {
		case businessflow.IsTenantNotFound(err):
			return ErrorResponse(c, fiber.StatusNotFound, "Tenant not found", "TENANT_NOT_FOUND", nil)
		case businessflow.IsChannelNotFound(err):
			return ErrorResponse(c, fiber.StatusNotFound, "Channel not found or inactive", "CHANNEL_NOT_FOUND", nil)
		}
		h.log.Error("Channel lookup failed", "tenant_id", tenant.ID, "channel", c.Params("channel_slug"), "error", err.Error())
		return ErrorResponse(c, fiber.StatusInternalServerError, "Channel lookup failed", "INTERNAL_ERROR", nil)
	}

	return SuccessResponse(c, fiber.StatusOK, "Channel retrieved successfully", info)
}
