package handlers

import (
	"github.com/amirphl/fast-ads/app/dto"
	"github.com/amirphl/fast-ads/app/middleware"
	businessflow "github.com/amirphl/fast-ads/business_flow"
	"github.com/amirphl/fast-ads/logger"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// TrackingHandlerInterface defines the contract for tracking handlers
type TrackingHandlerInterface interface {
	TrackEvents(c fiber.Ctx) error
	TrackPixel(c fiber.Ctx) error
}

// TrackingHandler receives playback events from the stitching service and from players
type TrackingHandler struct {
	trackingFlow businessflow.TrackingFlow
	validator    *validator.Validate
	log          *logger.Logger
}

// NewTrackingHandler creates a new tracking handler
func NewTrackingHandler(trackingFlow businessflow.TrackingFlow, log *logger.Logger) TrackingHandlerInterface {
	return &TrackingHandler{
		trackingFlow: trackingFlow,
		validator:    validator.New(),
		log:          log,
	}
}

// TrackEvents records a batch of events
// @Summary Track Events
// @Description Record up to 500 playback events. Events are validated and stored independently; the response lists the failed indices.
// @Tags Tracking
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body dto.TrackEventsRequest true "Event batch"
// @Success 200 {object} dto.APIResponse{data=dto.TrackEventsResponse} "Batch processed"
// @Failure 400 {object} dto.APIResponse "Invalid request body"
// @Failure 401 {object} dto.APIResponse "Invalid API key"
// @Failure 422 {object} dto.APIResponse "Validation error"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/tracking/events [post]
func (h *TrackingHandler) TrackEvents(c fiber.Ctx) error {
	var req dto.TrackEventsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return validationFailed(c, err)
	}

	tenant, ok := middleware.GetTenantFromContext(c)
	if !ok {
		return ErrorResponse(c, fiber.StatusUnauthorized, "Tenant not found in context", "INVALID_API_KEY", nil)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/tracking/events")
	defer cancel()

	result, err := h.trackingFlow.TrackEvents(ctx, tenant, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsValidationError(err) {
			return ErrorResponse(c, fiber.StatusUnprocessableEntity, "Validation failed", "VALIDATION_ERROR", []string{err.Error()})
		}
		h.log.Error("Tracking batch failed", "tenant_id", tenant.ID, "events", len(req.Events), "error", err.Error())
		return ErrorResponse(c, fiber.StatusInternalServerError, "Failed to process tracking events", "INTERNAL_ERROR", nil)
	}

	return SuccessResponse(c, fiber.StatusOK, "Tracking events processed", result)
}

// TrackPixel records one event fired from a tracking URL
// @Summary Tracking Pixel
// @Description Record one event from a tracking URL embedded in a decision or a VAST document
// @Tags Tracking
// @Param ad_id query int true "Ad id"
// @Param event_type query string true "Event type"
// @Param session_id query string false "Viewer session"
// @Param channel_id query int false "Channel id"
// @Param variant_id query int false "Variant id"
// @Param t query string false "Signed beacon token"
// @Success 204 "Event recorded"
// @Failure 401 {object} dto.APIResponse "Invalid or expired beacon token"
// @Failure 404 {object} dto.APIResponse "Ad not found"
// @Failure 422 {object} dto.APIResponse "Validation error"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/tracking/events [get]
func (h *TrackingHandler) TrackPixel(c fiber.Ctx) error {
	var req dto.TrackingPixelRequest
	if err := c.Bind().Query(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return validationFailed(c, err)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/tracking/events")
	defer cancel()

	if err := h.trackingFlow.TrackBeacon(ctx, &req, clientMetadata(c)); err != nil {
		switch {
		case businessflow.IsInvalidBeacon(err):
			return ErrorResponse(c, fiber.StatusUnauthorized, "Invalid or expired beacon token", "INVALID_BEACON", nil)
		case businessflow.IsAdNotFound(err):
			return ErrorResponse(c, fiber.StatusNotFound, "Ad not found", "AD_NOT_FOUND", nil)
		case businessflow.IsValidationError(err):
			return ErrorResponse(c, fiber.StatusUnprocessableEntity, "Validation failed", "VALIDATION_ERROR", []string{err.Error()})
		}
		h.log.Error("Tracking pixel failed", "ad_id", req.AdID, "event_type", req.EventType, "error", err.Error())
		return ErrorResponse(c, fiber.StatusInternalServerError, "Failed to record tracking event", "INTERNAL_ERROR", nil)
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.SendStatus(fiber.StatusNoContent)
}
