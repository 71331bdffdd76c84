package utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestScopeFromContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, EndpointKey, "/api/v1/tracking/events")

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "/api/v1/tracking/events", EndpointFromContext(ctx))

	assert.Empty(t, RequestIDFromContext(context.Background()))
	assert.Empty(t, EndpointFromContext(context.WithValue(context.Background(), EndpointKey, 42)))
}
