package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSurfaceOf(t *testing.T) {
	cases := map[string]string{
		"/api/v1/ads/decision":                        "decision",
		"/api/v1/ads/vast/:tenant_slug/:channel_slug": "ad_tag",
		"/api/v1/ads/vmap/:tenant_slug/:channel_slug": "ad_tag",
		"/api/v1/tracking/events":                     "tracking",
		"/api/v1/channels/:tenant_slug/:channel_slug": "channel",
		"/api/v1/health":                              "system",
		"unmatched":                                   "system",
	}
	for route, want := range cases {
		assert.Equal(t, want, surfaceOf(route), route)
	}
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(204))
	assert.Equal(t, "4xx", statusClass(429))
	assert.Equal(t, "5xx", statusClass(503))
	assert.Equal(t, "unknown", statusClass(0))
}

func TestMetrics_LabelsTenantAndRoute(t *testing.T) {
	app := fiber.New()
	app.Use(Metrics())
	app.Post("/api/v1/ads/decision", func(c fiber.Ctx) error {
		c.Locals(tenantIDLocalsKey, uint(42))
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/api/v1/health", func(c fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	tenant := apiRequestsTotal.WithLabelValues("decision", "/api/v1/ads/decision", "2xx", "42")
	anonymous := apiRequestsTotal.WithLabelValues("system", "/api/v1/health", "2xx", anonymousTenant)
	tenantBefore := testutil.ToFloat64(tenant)
	anonymousBefore := testutil.ToFloat64(anonymous)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/api/v1/ads/decision", nil),
		httptest.NewRequest(http.MethodPost, "/api/v1/ads/decision", nil),
		httptest.NewRequest(http.MethodGet, "/api/v1/health", nil),
	} {
		resp, err := app.Test(req, fiber.TestConfig{Timeout: 5 * time.Second})
		require.NoError(t, err)
		resp.Body.Close()
	}

	assert.Equal(t, tenantBefore+2, testutil.ToFloat64(tenant))
	assert.Equal(t, anonymousBefore+1, testutil.ToFloat64(anonymous))
	assert.Equal(t, 0.0, testutil.ToFloat64(apiInFlight.WithLabelValues("decision")))
}
