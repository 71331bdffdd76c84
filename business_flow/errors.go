package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Tenant and channel resolution
	ErrTenantNotFound  = errors.New("tenant not found")
	ErrTenantInactive  = errors.New("tenant is inactive")
	ErrChannelNotFound = errors.New("channel not found or inactive")
	ErrInvalidAPIKey   = errors.New("invalid API key")

	// Decision request errors
	ErrInvalidPosition = errors.New("invalid ad break position")
	ErrInvalidDuration = errors.New("duration must be positive")

	// Tracking errors
	ErrAdNotFound       = errors.New("ad not found")
	ErrVariantNotFound  = errors.New("variant not found for ad")
	ErrInvalidEventType = errors.New("invalid event type")
	ErrTenantMismatch   = errors.New("event tenant does not match the authenticated tenant")
	ErrEmptyBatch       = errors.New("at least one event is required")
	ErrBatchTooLarge    = errors.New("too many events in one batch")
	ErrInvalidBeacon    = errors.New("invalid or expired beacon token")

	// Store errors
	ErrStoreUnavailable = errors.New("store unavailable")

	// Report errors
	ErrInvalidReportRange = errors.New("report range end is before its start")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsTenantNotFound(err error) bool {
	return errors.Is(err, ErrTenantNotFound) || errors.Is(err, ErrTenantInactive)
}

func IsChannelNotFound(err error) bool {
	return errors.Is(err, ErrChannelNotFound)
}

func IsInvalidAPIKey(err error) bool {
	return errors.Is(err, ErrInvalidAPIKey)
}

func IsInvalidPosition(err error) bool {
	return errors.Is(err, ErrInvalidPosition)
}

func IsInvalidDuration(err error) bool {
	return errors.Is(err, ErrInvalidDuration)
}

func IsAdNotFound(err error) bool {
	return errors.Is(err, ErrAdNotFound)
}

func IsVariantNotFound(err error) bool {
	return errors.Is(err, ErrVariantNotFound)
}

func IsInvalidEventType(err error) bool {
	return errors.Is(err, ErrInvalidEventType)
}

func IsTenantMismatch(err error) bool {
	return errors.Is(err, ErrTenantMismatch)
}

func IsEmptyBatch(err error) bool {
	return errors.Is(err, ErrEmptyBatch)
}

func IsBatchTooLarge(err error) bool {
	return errors.Is(err, ErrBatchTooLarge)
}

func IsInvalidBeacon(err error) bool {
	return errors.Is(err, ErrInvalidBeacon)
}

func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

func IsInvalidReportRange(err error) bool {
	return errors.Is(err, ErrInvalidReportRange)
}

// IsValidationError reports errors caused by the caller's input rather than by the service
func IsValidationError(err error) bool {
	return IsInvalidPosition(err) || IsInvalidDuration(err) || IsInvalidEventType(err) ||
		IsEmptyBatch(err) || IsBatchTooLarge(err) || IsInvalidReportRange(err)
}
