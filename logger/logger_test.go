package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/amirphl/fast-ads/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestSanitizeKVs(t *testing.T) {
	out := sanitizeKVs([]any{"tenant_id", 7, "api_key", "abc", "X-Beacon-Token", "t", "dangling"})
	assert.Equal(t, []any{"tenant_id", 7, "api_key", "[REDACTED]", "X-Beacon-Token", "[REDACTED]", "dangling"}, out)
}

func TestWriterLoggerRedacts(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, zapcore.InfoLevel)

	l.Debug("hidden")
	l.With("api_secret", "s3cr3t").Info("decision served", "ad_count", 2)
	l.Sync()

	s := buf.String()
	assert.NotContains(t, s, "hidden")
	assert.NotContains(t, s, "s3cr3t")
	assert.Contains(t, s, `"ad_count":2`)
	assert.Contains(t, s, "[REDACTED]")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	require.Error(t, err)

	l, err := New(Config{Level: "info", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, l.SugaredLogger)
}

func TestCtxTagsRequestScope(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, zapcore.InfoLevel)

	ctx := context.WithValue(context.Background(), utils.RequestIDKey, "req-42")
	ctx = context.WithValue(ctx, utils.EndpointKey, "/api/v1/ads/decision")
	l.Ctx(ctx).Error("Ad decision failed", "tenant_id", 3)
	l.Sync()

	s := buf.String()
	assert.Contains(t, s, `"request_id":"req-42"`)
	assert.Contains(t, s, `"endpoint":"/api/v1/ads/decision"`)
	assert.Contains(t, s, `"tenant_id":3`)

	assert.Same(t, l, l.Ctx(context.Background()))
}
