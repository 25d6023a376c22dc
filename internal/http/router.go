// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, authentication, idempotency, and rate limiting.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-docregistry-backend/internal/config"
	"github.com/tbourn/go-docregistry-backend/internal/domain"
	"github.com/tbourn/go-docregistry-backend/internal/http/handlers"
	"github.com/tbourn/go-docregistry-backend/internal/http/middleware"
	"github.com/tbourn/go-docregistry-backend/internal/repo"
	"github.com/tbourn/go-docregistry-backend/internal/services"
	"github.com/tbourn/go-docregistry-backend/internal/sessions"
	"github.com/tbourn/go-docregistry-backend/internal/tokens"
)

// maxBodyBytes caps request bodies for every endpoint.
const maxBodyBytes = 1 << 20

// auditRepoShim adapts the repository free functions to the
// services.AuditRepo interface expected by the AuditService.
type auditRepoShim struct{}

// CreateAuditLog proxies repo.CreateAuditLog.
func (auditRepoShim) CreateAuditLog(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	return repo.CreateAuditLog(ctx, db, entry)
}

// ListAuditLogs proxies repo.ListAuditLogs.
func (auditRepoShim) ListAuditLogs(ctx context.Context, db *gorm.DB, limit int) ([]domain.AuditLog, error) {
	return repo.ListAuditLogs(ctx, db, limit)
}

// Services bundles the application services built from the infrastructure.
type Services struct {
	Allocator   *services.Allocator
	Documents   *services.DocumentService
	Users       *services.UserService
	Auth        *services.AuthService
	Audit       *services.AuditService
	Idempotency *services.IdempotencyService
}

// NewServices wires the services onto db and the optional Redis client rdb
// (nil disables token revocation).
func NewServices(db *gorm.DB, rdb *redis.Client, cfg config.Config) *Services {
	alloc := services.NewAllocator(db)
	alloc.ReservationTTL = cfg.Allocator.ReservationTTL
	alloc.MaxBatch = cfg.Allocator.MaxBatch
	alloc.MaxAttempts = cfg.Allocator.MaxAttempts

	users := &services.UserService{DB: db, BcryptCost: cfg.Auth.BcryptCost}

	audit := services.NewAuditService(db, auditRepoShim{})
	audit.Timeout = cfg.AuditTimeout
	audit.MaxLimit = cfg.LogsMaxLimit

	return &Services{
		Allocator: alloc,
		Documents: &services.DocumentService{DB: db},
		Users:     users,
		Auth: &services.AuthService{
			Users:   users,
			Tokens:  tokens.NewManager(cfg.Auth.JWTSecret, cfg.Auth.JWTTTL, cfg.Auth.JWTIssuer),
			Revoker: sessions.NewRevoker(rdb),
		},
		Audit:       audit,
		Idempotency: &services.IdempotencyService{DB: db, TTL: cfg.IdempotencyTTL},
	}
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the registry API under cfg.APIBasePath. rdb, when not
// nil, backs the rate limiter; otherwise an in-process limiter is used.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Access logging (redacting outside debug mode)
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. CORS and security headers, then gzip
//
// Authentication, rate limiting and idempotency run per route group, in that
// order, so limits and replays are keyed by the authenticated user.
func RegisterRoutes(r *gin.Engine, svc *Services, rdb *redis.Client, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	if cfg.OTEL.Enabled {
		r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	}

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging; full query strings only while debugging
	if cfg.GinMode == gin.DebugMode {
		r.Use(middleware.Logger())
	} else {
		r.Use(middleware.RedactingLogger(middleware.RedactOptions{
			MaskHeaders: []string{"Proxy-Authorization"},
		}))
	}

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit
	r.Use(limitBody(maxBodyBytes))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) CORS posture, security headers, compression
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true,
		EnablePolicy: true,
	}))
	if cfg.GzipEnabled {
		r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	}

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(handlers.Deps{
		Allocator:    svc.Allocator,
		Documents:    svc.Documents,
		Users:        svc.Users,
		Auth:         svc.Auth,
		Audit:        svc.Audit,
		Idempotency:  svc.Idempotency,
		LogsMaxLimit: cfg.LogsMaxLimit,
	})

	// Liveness/health, at the root and under the API prefix
	r.GET("/health", h.Health)

	limit := rateLimiter(rdb, cfg)
	authn := middleware.Authenticate(svc.Auth)
	admin := middleware.RequireRole(domain.RoleAdmin)
	idem := middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, idempotencyLookup(svc.Idempotency))

	api := groupWithPrefix(r, cfg.APIBasePath)
	if api.BasePath() != "/" {
		api.GET("/health", h.Health)
	}

	// Auth (public, limited by IP)
	pub := api.Group("/auth", limit)
	{
		pub.POST("/login", h.Login)
		pub.POST("/register", h.Register)
	}
	api.POST("/auth/logout", authn, limit, h.Logout)

	// Documents and reservations
	docs := api.Group("/documents", authn, limit)
	{
		docs.POST("", idem, h.RegisterDocument)
		docs.GET("", h.ListDocuments)
		docs.GET("/my-documents", h.MyDocuments)
		docs.GET("/user-stats", h.UserStats)
		docs.GET("/all", admin, h.AllDocuments)
		docs.GET("/recent", admin, h.RecentDocuments)
		docs.PUT("/:id", admin, h.UpdateDocument)
		docs.DELETE("/:id", admin, h.DeleteDocument)

		docs.POST("/reserve", idem, h.Reserve)
		docs.GET("/reserve", h.DepartmentReservations)
		docs.GET("/my-reservations", h.MyReservations)
		docs.GET("/reserved-numbers", h.ReservedNumbers)
		docs.DELETE("/reserved-numbers/:id", admin, h.DeleteReservation)
		docs.POST("/generate-number", h.GenerateNumber)
	}

	// Users
	users := api.Group("/users", authn, limit)
	{
		users.GET("/profile", h.Profile)
		users.PUT("/change-password", h.ChangePassword)
		users.POST("", admin, h.CreateUser)
		users.GET("", admin, h.ListUsers)
		users.PUT("/:id", admin, h.UpdateUser)
		users.DELETE("/:id", admin, h.DeleteUser)
	}

	// Audit log
	logs := api.Group("/logs", authn, limit)
	{
		logs.GET("", admin, h.ListLogs)
		logs.POST("/add", h.AddLog)
	}
}

// rateLimiter picks the Redis-backed limiter when a client is available.
func rateLimiter(rdb *redis.Client, cfg config.Config) gin.HandlerFunc {
	if rdb != nil {
		return middleware.NewRedisRateLimiter(rdb, cfg.RateRPS, cfg.RateBurst, cfg.RateWindow, middleware.KeyByUserOrIP()).Handler()
	}
	return middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP()).Handler()
}

func idempotencyLookup(s *services.IdempotencyService) middleware.IdempotencyLookup {
	return func(ctx context.Context, userID, operation, key string, _ time.Time) (bool, error) {
		rec, err := s.Lookup(ctx, userID, operation, key)
		if err != nil || rec == nil {
			return false, err
		}
		return true, nil
	}
}

// corsMiddleware allows every origin when none is configured; otherwise only
// the allowlist, echoed back by gin-contrib/cors.
func corsMiddleware(origins []string) gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", middleware.HeaderIdempotencyKey},
		ExposeHeaders: []string{
			"X-Request-ID", "Content-Length", "ETag", "Retry-After", middleware.HeaderIdempotencyReplayed,
		},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = origins
	}
	return cors.New(cc)
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
