// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/martalon/colmena/app/dto"
	"github.com/martalon/colmena/app/handlers"
	"github.com/martalon/colmena/app/middleware"
	"github.com/martalon/colmena/app/services"
	"github.com/martalon/colmena/config"
	"github.com/martalon/colmena/utils"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app *fiber.App
	cfg *config.ProductionConfig

	authMiddleware *middleware.AuthMiddleware

	campaignHandler    handlers.CampaignHandlerInterface
	applicationHandler handlers.ApplicationHandlerInterface
	deliverableHandler handlers.DeliverableHandlerInterface
	metricsHandler     handlers.MetricsHandlerInterface
	schedulerHandler   handlers.SchedulerAdminHandlerInterface
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	cfg *config.ProductionConfig,
	authMiddleware *middleware.AuthMiddleware,
	campaignHandler handlers.CampaignHandlerInterface,
	applicationHandler handlers.ApplicationHandlerInterface,
	deliverableHandler handlers.DeliverableHandlerInterface,
	metricsHandler handlers.MetricsHandlerInterface,
	schedulerHandler handlers.SchedulerAdminHandlerInterface,
) Router {
	app := fiber.New(fiber.Config{
		AppName:      "Colmena API",
		ServerHeader: "Colmena",
		ErrorHandler: errorHandler,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:                app,
		cfg:                cfg,
		authMiddleware:     authMiddleware,
		campaignHandler:    campaignHandler,
		applicationHandler: applicationHandler,
		deliverableHandler: deliverableHandler,
		metricsHandler:     metricsHandler,
		schedulerHandler:   schedulerHandler,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	// Global middleware
	r.setupMiddleware()

	// API routes
	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	// Apply general rate limiting to all API routes (aligned with nginx)
	api.Use(limiter.New(limiter.Config{
		Max:        r.cfg.Security.GlobalRateLimit,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP() // Rate limit by IP
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
		Next: func(c fiber.Ctx) bool {
			// Skip rate limiting for health checks
			return c.Path() == "/api/v1/health"
		},
	}))

	authenticate := r.authMiddleware.Authenticate()
	brandOnly := r.authMiddleware.RequireRole(services.RoleBrand)
	creatorOnly := r.authMiddleware.RequireRole(services.RoleCreator)
	adminOnly := r.authMiddleware.RequireRole(services.RoleAdmin)

	// Campaign endpoints
	campaigns := api.Group("/campaigns")
	campaigns.Get("/", r.campaignHandler.ListOpenCampaigns, authenticate, r.authMiddleware.RequireRole(services.RoleCreator, services.RoleAdmin))
	campaigns.Post("/", r.campaignHandler.CreateCampaign, authenticate, brandOnly)
	campaigns.Get("/:uuid", r.campaignHandler.GetCampaign, authenticate)
	campaigns.Post("/:uuid/publish", r.campaignHandler.PublishCampaign, authenticate, brandOnly)
	campaigns.Post("/:uuid/close", r.campaignHandler.CloseCampaign, authenticate, brandOnly)
	campaigns.Post("/:uuid/applications", r.applicationHandler.Apply, authenticate, creatorOnly)
	campaigns.Get("/:uuid/applications", r.applicationHandler.ListForCampaign, authenticate, brandOnly)

	// Application endpoints
	applications := api.Group("/applications")
	applications.Post("/:uuid/confirm", r.applicationHandler.Confirm, authenticate, brandOnly)
	applications.Post("/:uuid/reject", r.applicationHandler.Reject, authenticate, brandOnly)
	applications.Post("/:uuid/cancel", r.applicationHandler.Cancel, authenticate, creatorOnly)

	// Deliverable endpoints
	deliverables := api.Group("/deliverables")
	deliverables.Get("/:uuid", r.deliverableHandler.Get, authenticate)
	deliverables.Post("/:uuid/publish", r.deliverableHandler.Publish, authenticate, creatorOnly)
	deliverables.Post("/:uuid/submit", r.deliverableHandler.Submit, authenticate, creatorOnly)
	deliverables.Post("/:uuid/review", r.deliverableHandler.Review, authenticate, brandOnly)
	deliverables.Post("/:uuid/metrics", r.metricsHandler.SubmitMetrics, authenticate, creatorOnly)

	// Operator endpoints for manual scheduler triggers
	admin := api.Group("/admin", authenticate, adminOnly)
	admin.Post("/scheduler/contract-reload", r.schedulerHandler.RunContractReload)
	admin.Post("/scheduler/auto-reject", r.schedulerHandler.RunAutoReject)
	admin.Post("/scheduler/reminders", r.schedulerHandler.RunDailyReminders)

	// Not found handler
	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	// Security headers middleware
	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             r.cfg.Security.XSSProtection,
		ContentTypeNosniff:        r.cfg.Security.XContentTypeOptions,
		XFrameOptions:             r.cfg.Security.XFrameOptions,
		HSTSMaxAge:                r.cfg.Security.HSTSMaxAge,
		HSTSExcludeSubdomains:     !r.cfg.Security.HSTSIncludeSubDoms,
		ContentSecurityPolicy:     r.cfg.Security.CSPPolicy,
		ReferrerPolicy:            r.cfg.Security.ReferrerPolicy,
		CrossOriginEmbedderPolicy: "require-corp",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "cross-origin",
		OriginAgentCluster:        "?1",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	// CORS middleware with production settings
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: r.cfg.Security.AllowedOrigins,
		AllowMethods: r.cfg.Security.AllowedMethods,
		AllowHeaders: append(r.cfg.Security.AllowedHeaders, "X-Request-ID", "Cache-Control"),
		ExposeHeaders: []string{
			"X-Request-ID",
			"X-Response-Time",
		},
		AllowCredentials: r.cfg.Security.AllowCredentials,
		MaxAge:           r.cfg.Security.CORSMaxAge,
	}))

	// Compression middleware for performance
	if r.cfg.Server.EnableCompression {
		r.app.Use(compress.New(compress.Config{
			Level: compress.LevelBestSpeed,
		}))
	}

	// Prometheus HTTP metrics
	if r.cfg.Server.EnableMetrics {
		r.app.Use(middleware.Metrics())
	}

	// Structured access logging
	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","pid":"${pid}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","protocol":"${protocol}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent},"referer":"${referer}"}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			// Skip logging for health checks in production
			return c.Path() == "/api/v1/health"
		},
	}))

	// Recovery middleware with custom error handling
	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e interface{}) {
			// Log panic with request context
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				c.Locals("requestid"),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// Health check endpoint
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"version":   r.cfg.Deployment.Version,
			"service":   "colmena-api",
		},
	})
}

// Not found handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	requestID := c.Locals("requestid")

	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestID,
			},
		},
	})
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	// Default error code
	code := fiber.StatusInternalServerError

	// Retrieve the custom status code if it's a fiber.*Error
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	// Log the error
	log.Printf("Error %d: %v", code, err)

	// Get RequestID for tracing
	requestID := c.Locals("requestid")

	// Return JSON error response
	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: "An internal server error occurred",
		Error: dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestID,
			},
		},
	})
}

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
