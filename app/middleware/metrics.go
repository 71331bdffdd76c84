package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const anonymousTenant = "anonymous"

var (
	apiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ads_api_requests_total",
			Help: "Ad serving API requests by surface, route, status class and tenant",
		},
		[]string{"surface", "route", "status_class", "tenant"},
	)

	// Buckets follow the decision latency budget rather than generic web latencies
	apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ads_api_request_duration_seconds",
			Help:    "Ad serving API latency by surface and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"surface", "route"},
	)

	apiInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ads_api_requests_in_flight",
			Help: "Ad serving API requests currently being served by surface",
		},
		[]string{"surface"},
	)
)

// surfaceOf groups a route template into the product surface it belongs to
func surfaceOf(route string) string {
	switch {
	case strings.HasPrefix(route, "/api/v1/ads/vast/"), strings.HasPrefix(route, "/api/v1/ads/vmap/"):
		return "ad_tag"
	case strings.HasPrefix(route, "/api/v1/ads/"):
		return "decision"
	case strings.HasPrefix(route, "/api/v1/tracking/"):
		return "tracking"
	case strings.HasPrefix(route, "/api/v1/channels/"):
		return "channel"
	default:
		return "system"
	}
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

// Metrics records per tenant request counts and latencies of the ad serving surfaces.
// Routes are labelled by their template so tenant and channel slugs do not explode cardinality;
// requests that never authenticated are counted under the anonymous tenant.
func Metrics() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		inFlight := apiInFlight.WithLabelValues(surfaceOf(c.Path()))
		inFlight.Inc()
		defer inFlight.Dec()

		err := c.Next()

		route := "unmatched"
		if r := c.Route(); r != nil && r.Path != "" && r.Path != "/" {
			route = r.Path
		}
		surface := surfaceOf(route)

		tenant := anonymousTenant
		if id, ok := GetTenantIDFromContext(c); ok {
			tenant = strconv.FormatUint(uint64(id), 10)
		}

		apiRequestsTotal.WithLabelValues(surface, route, statusClass(c.Response().StatusCode()), tenant).Inc()
		apiRequestDuration.WithLabelValues(surface, route).Observe(time.Since(start).Seconds())

		return err
	}
}
