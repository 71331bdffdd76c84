// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/amirphl/fast-ads/app/dto"
	businessflow "github.com/amirphl/fast-ads/business_flow"
	"github.com/amirphl/fast-ads/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
)

// requestTimeout bounds a handler's call into the business layer
const requestTimeout = 5 * time.Second

func ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// createRequestContext carries the request metadata into the business layer.
// The caller must call the returned cancel func.
func createRequestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, requestid.FromContext(c))
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	return ctx, cancel
}

func clientMetadata(c fiber.Ctx) *businessflow.ClientMetadata {
	return businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
}

// validationErrors flattens validator errors into one message per field.
// ok is false when err did not come from the validator.
func validationErrors(err error) (messages []string, ok bool) {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return nil, false
	}
	for _, fe := range fieldErrors {
		messages = append(messages, getValidationErrorMessage(fe))
	}
	return messages, true
}

func validationFailed(c fiber.Ctx, err error) error {
	messages, ok := validationErrors(err)
	if !ok {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid request", "INVALID_REQUEST", err.Error())
	}
	return ErrorResponse(c, fiber.StatusUnprocessableEntity, "Validation failed", "VALIDATION_ERROR", messages)
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "min", "max":
		bound := "at least"
		if err.Tag() == "max" {
			bound = "at most"
		}
		switch err.Kind() {
		case reflect.String:
			return fmt.Sprintf("%s must be %s %s characters", err.Field(), bound, err.Param())
		case reflect.Slice, reflect.Array, reflect.Map:
			return fmt.Sprintf("%s must contain %s %s items", err.Field(), bound, err.Param())
		default:
			return fmt.Sprintf("%s must be %s %s", err.Field(), bound, err.Param())
		}
	case "len":
		return err.Field() + " must be exactly " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "alpha":
		return err.Field() + " must contain only letters"
	case "ip":
		return err.Field() + " must be a valid IP address"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}
