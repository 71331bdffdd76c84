// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/fast-ads/app/dto"
	"github.com/amirphl/fast-ads/app/handlers"
	"github.com/amirphl/fast-ads/app/middleware"
	"github.com/amirphl/fast-ads/config"
	"github.com/amirphl/fast-ads/docs"
	"github.com/amirphl/fast-ads/logger"
	"github.com/amirphl/fast-ads/utils"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggo/swag"
)

const healthPath = "/api/v1/health"

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// Handlers groups the HTTP handlers mounted by the router
type Handlers struct {
	Decision handlers.AdDecisionHandlerInterface
	AdTag    handlers.AdTagHandlerInterface
	Tracking handlers.TrackingHandlerInterface
	Channel  handlers.ChannelHandlerInterface
}

// HealthCheck checks one dependency for the health endpoint
type HealthCheck func(ctx context.Context) error

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app            *fiber.App
	cfg            *config.ProductionConfig
	log            *logger.Logger
	handlers       Handlers
	authMiddleware *middleware.AuthMiddleware
	healthChecks   map[string]HealthCheck
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	cfg *config.ProductionConfig,
	log *logger.Logger,
	h Handlers,
	authMiddleware *middleware.AuthMiddleware,
	healthChecks map[string]HealthCheck,
) *FiberRouter {
	r := &FiberRouter{
		cfg:            cfg,
		log:            log,
		handlers:       h,
		authMiddleware: authMiddleware,
		healthChecks:   healthChecks,
	}

	fiberCfg := fiber.Config{
		AppName:      "FAST Ads API",
		ServerHeader: "fast-ads",
		ErrorHandler: r.errorHandler,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	}
	if cfg.Server.ProxyHeader != "" {
		fiberCfg.ProxyHeader = cfg.Server.ProxyHeader
		fiberCfg.TrustProxy = true
		fiberCfg.TrustProxyConfig = fiber.TrustProxyConfig{Loopback: true, Private: true}
	}
	r.app = fiber.New(fiberCfg)

	return r
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	r.log.Info("Setting up routes")

	// Global middleware
	r.setupMiddleware()

	if r.cfg.Metrics.Enabled {
		r.app.Get(r.cfg.Metrics.Path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	// API routes
	api := r.app.Group("/api/v1")

	// Health check and docs are public and not rate limited
	api.Get("/health", r.healthCheck)
	api.Get("/swagger.json", r.serveSwaggerJSON)

	// Per-IP ceiling in front of the per-tenant quota
	api.Use(limiter.New(limiter.Config{
		Max:        r.cfg.Security.GlobalRateLimit,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
	}))

	// Tracking pixels are fired by players that hold no API key
	api.Get("/tracking/events", r.handlers.Tracking.TrackPixel)

	auth := r.authMiddleware.Authenticate()

	ads := api.Group("/ads", auth)
	ads.Post("/decision", r.handlers.Decision.Decide)
	ads.Get("/vmap/:tenant_slug/:channel_slug", r.handlers.AdTag.VMAP)
	ads.Get("/vast/:tenant_slug/:channel_slug", r.handlers.AdTag.VAST)

	api.Post("/tracking/events", auth, r.handlers.Tracking.TrackEvents)
	api.Get("/channels/:tenant_slug/:channel_slug", auth, r.handlers.Channel.GetChannel)

	// Not found handler
	r.app.Use(r.notFoundHandler)

	r.log.Info("Routes configured successfully")
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header:    fiber.HeaderXRequestID,
		Generator: uuid.NewString,
	}))

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			r.log.Error("Panic while serving request",
				"request_id", requestid.FromContext(c),
				"error", fmt.Sprint(e),
				"path", c.Path(),
				"method", c.Method(),
				"ip", c.IP())
		},
	}))

	if r.cfg.Metrics.Enabled {
		r.app.Use(middleware.Metrics())
	}

	// Players load VMAP and VAST from other origins, so resources stay cross-origin
	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "0",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		HSTSMaxAge:                31536000,
		ContentSecurityPolicy:     "default-src 'none'; frame-ancestors 'none';",
		ReferrerPolicy:            "no-referrer",
		CrossOriginResourcePolicy: "cross-origin",
		XDNSPrefetchControl:       "off",
		XPermittedCrossDomain:     "none",
	}))

	r.app.Use(cors.New(cors.Config{
		AllowOrigins:  r.cfg.Security.AllowedOrigins,
		AllowMethods:  r.cfg.Security.AllowedMethods,
		AllowHeaders:  r.cfg.Security.AllowedHeaders,
		ExposeHeaders: []string{fiber.HeaderXRequestID},
		MaxAge:        utils.IntOr(r.cfg.Security.CORSMaxAge, utils.CORSMaxAge),
	}))

	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
		Next: func(c fiber.Ctx) bool {
			// Pixels have no body worth compressing
			return c.Method() == fiber.MethodGet && strings.HasSuffix(c.Path(), "/tracking/events")
		},
	}))

	r.app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     `{"time":"${time}","request_id":"${respHeader:X-Request-ID}","level":"info","method":"${method}","path":"${path}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent}}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			return c.Path() == healthPath || c.Path() == r.cfg.Metrics.Path
		},
	}))
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	r.log.Info("Starting server", "address", address)
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// Health check endpoint
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(r.healthChecks))
	healthy := true
	for name, check := range r.healthChecks {
		if err := check(ctx); err != nil {
			healthy = false
			checks[name] = "unavailable"
			r.log.Warn("Health check failed", "dependency", name, "error", err.Error())
			continue
		}
		checks[name] = "ok"
	}

	status, statusCode, message := "ok", fiber.StatusOK, "Service is healthy"
	if !healthy {
		status, statusCode, message = "degraded", fiber.StatusServiceUnavailable, "Service is degraded"
	}

	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: healthy,
		Message: message,
		Data: fiber.Map{
			"status":       status,
			"timestamp":    utils.UTCNow().Unix(),
			"version":      r.cfg.Deployment.Version,
			"environment":  r.cfg.Deployment.Environment,
			"service":      "fast-ads-api",
			"dependencies": checks,
		},
	})
}

// Serve the generated Swagger document
func (r *FiberRouter) serveSwaggerJSON(c fiber.Ctx) error {
	doc, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
			Success: false,
			Message: "Failed to load Swagger documentation",
			Error: dto.ErrorDetail{
				Code: "SWAGGER_LOAD_ERROR",
			},
		})
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.SendString(doc)
}

// Not found handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}

// Global error handler
func (r *FiberRouter) errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	errorCode := "INTERNAL_ERROR"
	message := "An internal server error occurred"

	// Retrieve the custom status code if it's a fiber.*Error
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		switch code {
		case fiber.StatusNotFound:
			errorCode, message = "NOT_FOUND", "The requested resource was not found"
		case fiber.StatusRequestEntityTooLarge:
			errorCode, message = "INVALID_REQUEST", "Request body too large"
		case fiber.StatusMethodNotAllowed:
			errorCode, message = "NOT_FOUND", "Method not allowed"
		}
	}

	requestID := requestid.FromContext(c)
	if code >= fiber.StatusInternalServerError {
		r.log.Error("Unhandled request error", "status", code, "request_id", requestID, "path", c.Path(), "error", err.Error())
	}

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: errorCode,
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestID,
			},
		},
	})
}
