package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"compliance-backend/internal/shared/config"
	"compliance-backend/internal/shared/metrics"
	"compliance-backend/internal/shared/server/middleware"
	"compliance-backend/internal/shared/server/respond"
)

const (
	apiPrefix         = "/api/v1"
	healthPath        = apiPrefix + "/health"
	localUploadPrefix = apiPrefix + "/uploads/local/"
	scanGroup         = "SCAN"
)

// RouteRegistrar attaches a feature's routes to a group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// DevRouteRegistrar attaches routes that only exist in dev environments.
type DevRouteRegistrar interface {
	RegisterDevRoutes(rg *gin.RouterGroup)
}

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps carries everything the router mounts.
type RouterDeps struct {
	Config   config.Config
	Verifier middleware.TokenVerifier
	Handlers []RouteRegistrar
	Dev      []DevRouteRegistrar
	// LocalUploads serves signed PUTs when the local object store is active.
	LocalUploads RouteRegistrar
	DB           Pinger
	Limiter      *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if !deps.Config.IsDevLike() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		cors.New(corsConfig(deps.Config.CORSAllowOrigin)),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group(apiPrefix)
	api.Use(
		middleware.Auth(deps.Verifier, healthPath, localUploadPrefix),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				"DEFAULT": {Rate: 20, Burst: 40},
				scanGroup: {Rate: 1, Burst: 5},
			},
			GroupFor: routeGroup,
			Limiter:  deps.Limiter,
		}),
	)

	api.GET("/health", health(deps.DB))
	if deps.LocalUploads != nil {
		deps.LocalUploads.RegisterRoutes(api)
	}
	for _, h := range deps.Handlers {
		if h != nil {
			h.RegisterRoutes(api)
		}
	}
	if deps.Config.IsDevLike() && len(deps.Dev) > 0 {
		dev := api.Group("/dev")
		for _, h := range deps.Dev {
			if h != nil {
				h.RegisterDevRoutes(dev)
			}
		}
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

// routeGroup puts credit-spending scan routes in their own bucket.
func routeGroup(c *gin.Context) string {
	path := c.FullPath()
	if strings.HasSuffix(path, "/ai-scan") || strings.HasSuffix(path, "/bulk-ai-scan") ||
		strings.HasSuffix(path, "/:id/ai") || strings.HasSuffix(path, "/:id/retry") {
		return scanGroup
	}
	return ""
}

func health(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				respond.Error(c, http.StatusServiceUnavailable, "database_unavailable", "database unreachable", nil)
				return
			}
		}
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
