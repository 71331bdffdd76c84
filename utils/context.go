package utils

import "context"

type contextKey string

// Request scoped context keys set by handlers
const (
	RequestIDKey contextKey = "request_id"
	EndpointKey  contextKey = "endpoint"
)

// RequestIDFromContext returns the request id carried by ctx, or ""
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// EndpointFromContext returns the handler name carried by ctx, or ""
func EndpointFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	endpoint, _ := ctx.Value(EndpointKey).(string)
	return endpoint
}
