package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/turtacn/oidc-core/internal/config"
	"github.com/turtacn/oidc-core/internal/interfaces/http/handlers"
	"github.com/turtacn/oidc-core/internal/interfaces/http/middleware"
	"github.com/turtacn/oidc-core/pkg/constants"
	"github.com/turtacn/oidc-core/pkg/logger"
)

// Handlers groups the route handlers mounted by the router.
type Handlers struct {
	Authorization *handlers.AuthorizationHandler
	Logout        *handlers.LogoutHandler
	JWKS          *handlers.JWKSHandler
	Health        *handlers.HealthHandler

	// RateLimiter guards the tenant routes when set.
	RateLimiter middleware.RateLimiter
}

// Router owns the gin engine and the HTTP server.
type Router struct {
	engine  *gin.Engine
	config  config.ServerConfig
	logger  logger.Logger
	metrics middleware.HTTPMetrics
	h       Handlers
	server  *http.Server
}

// NewRouter creates a router. metrics may be nil.
func NewRouter(cfg config.ServerConfig, log logger.Logger, metrics middleware.HTTPMetrics, h Handlers) *Router {
	r := &Router{
		engine:  gin.New(),
		config:  cfg,
		logger:  log.WithComponent("Router"),
		metrics: metrics,
		h:       h,
	}
	r.setupRoutes()
	r.server = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r.engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		MaxHeaderBytes:    1 << 20,
	}
	return r
}

// Engine returns the configured gin engine.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) setupRoutes() {
	r.engine.Use(middleware.Recovery(r.logger))
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.Observability(otel.Tracer(constants.ServiceName), r.metrics))
	r.engine.Use(middleware.Logging(r.logger))

	if len(r.config.CORSOrigins) > 0 {
		r.engine.Use(cors.New(cors.Config{
			AllowOrigins:     r.config.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.HeaderRequestID},
			ExposeHeaders:    []string{middleware.HeaderRequestID},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	if r.h.Health != nil {
		r.engine.GET("/health", r.h.Health.HealthCheck)
		r.engine.GET("/ready", r.h.Health.HealthCheck)
		r.engine.GET("/live", r.h.Health.LivenessCheck)
	}
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if r.config.EnablePprof {
		pprof.Register(r.engine)
	}

	tenant := r.engine.Group("/:tenant/v1")
	if r.h.RateLimiter != nil {
		tenant.Use(middleware.RateLimit(r.h.RateLimiter, r.logger))
	}
	{
		authz := tenant.Group("/authorizations")
		authz.GET("", r.h.Authorization.Request)
		authz.POST("", r.h.Authorization.Request)
		authz.POST("/:id/authorize", r.h.Authorization.Authorize)
		authz.POST("/:id/deny", r.h.Authorization.Deny)

		tenant.POST("/logout", r.h.Logout.Logout)
		tenant.POST("/backchannel-logout", r.h.Logout.BackChannelLogout)

		if r.h.JWKS != nil {
			tenant.GET("/jwks", r.h.JWKS.GetJWKS)
		}
	}

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":             "not_found",
			"error_description": "The requested resource was not found",
		})
	})
}

// Start serves until Stop is called.
func (r *Router) Start() error {
	r.logger.Info(context.Background(), "starting HTTP server", logger.String("address", r.server.Addr))
	if err := r.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests.
func (r *Router) Stop(ctx context.Context) error {
	r.logger.Info(ctx, "stopping HTTP server")
	return r.server.Shutdown(ctx)
}
