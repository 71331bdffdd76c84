package handlers

import (
	"github.com/amirphl/fast-ads/app/dto"
	"github.com/amirphl/fast-ads/app/middleware"
	businessflow "github.com/amirphl/fast-ads/business_flow"
	"github.com/amirphl/fast-ads/logger"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
)

// AdDecisionHandlerInterface defines the contract for ad decision handlers
type AdDecisionHandlerInterface interface {
	Decide(c fiber.Ctx) error
}

// AdDecisionHandler serves pod decisions to the stitching service
type AdDecisionHandler struct {
	decisionFlow businessflow.AdDecisionFlow
	validator    *validator.Validate
	log          *logger.Logger
}

// NewAdDecisionHandler creates a new ad decision handler
func NewAdDecisionHandler(decisionFlow businessflow.AdDecisionFlow, log *logger.Logger) AdDecisionHandlerInterface {
	return &AdDecisionHandler{
		decisionFlow: decisionFlow,
		validator:    validator.New(),
		log:          log,
	}
}

// Decide fills one ad break
// @Summary Ad Decision
// @Description Select the ads of an ad break for the authenticated tenant. An empty pod is a valid answer.
// @Tags Ads
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body dto.AdDecisionRequest true "Ad break to fill"
// @Success 200 {object} dto.APIResponse{data=dto.AdDecisionResponse} "Decision completed"
// @Failure 400 {object} dto.APIResponse "Invalid request body"
// @Failure 401 {object} dto.APIResponse "Invalid API key or tenant mismatch"
// @Failure 404 {object} dto.APIResponse "Channel not found or inactive"
// @Failure 422 {object} dto.APIResponse "Validation error"
// @Failure 429 {object} dto.APIResponse "Rate limit exceeded"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/ads/decision [post]
func (h *AdDecisionHandler) Decide(c fiber.Ctx) error {
	var req dto.AdDecisionRequest
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

	ctx, cancel := createRequestContext(c, "/api/v1/ads/decision")
	defer cancel()

	result, err := h.decisionFlow.Decide(ctx, tenant, &req)
	if err != nil {
		switch {
		case businessflow.IsInvalidAPIKey(err):
			return ErrorResponse(c, fiber.StatusUnauthorized, "Tenant does not match the API key", "INVALID_API_KEY", nil)
		case businessflow.IsTenantNotFound(err):
			return ErrorResponse(c, fiber.StatusNotFound, "Tenant not found or inactive", "TENANT_NOT_FOUND", nil)
		case businessflow.IsChannelNotFound(err):
			return ErrorResponse(c, fiber.StatusNotFound, "Channel not found or inactive", "CHANNEL_NOT_FOUND", nil)
		case businessflow.IsValidationError(err):
			return ErrorResponse(c, fiber.StatusUnprocessableEntity, "Validation failed", "VALIDATION_ERROR", []string{err.Error()})
		}

		h.log.Error("Ad decision request failed",
			"tenant_id", tenant.ID,
			"channel", req.Channel,
			"ad_break_id", req.AdBreakID,
			"request_id", requestid.FromContext(c),
			"error", err.Error())
		return ErrorResponse(c, fiber.StatusInternalServerError, "Ad decision failed", "INTERNAL_ERROR", nil)
	}

	return SuccessResponse(c, fiber.StatusOK, "Ad decision completed", result)
}
