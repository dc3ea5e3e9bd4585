package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pollsight/datahub/internal/config"
	"pollsight/datahub/internal/handler/middleware"
	jwtpkg "pollsight/datahub/pkg/jwt"
)

func SetupRouter(
	cfg *config.Config,
	logger *zap.Logger,
	jwtManager *jwtpkg.Manager,
	registry *prometheus.Registry,
	authHandler *AuthHandler,
	electionHandler *ElectionHandler,
	operationsHandler *OperationsHandler,
	adminHandler *AdminHandler,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Prometheus scrape endpoint
	if registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	// Public auth routes
	auth := r.Group("/api/v1/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
	}

	// Protected routes
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth(jwtManager))
	{
		protected.POST("/auth/logout", authHandler.Logout)

		// Election data
		protected.GET("/constituencies", electionHandler.ListConstituencies)
		protected.GET("/constituencies/:code", electionHandler.GetConstituency)
		protected.GET("/years", electionHandler.ListYears)
		protected.GET("/contacts", electionHandler.SearchContacts)

		// Dataset loading operations
		protected.GET("/operations", operationsHandler.ListActive)
		protected.GET("/operations/:dataset", operationsHandler.GetState)
		protected.POST("/operations/:dataset/refresh", operationsHandler.Refresh)
		protected.DELETE("/operations/:dataset", operationsHandler.Cancel)
		protected.GET("/operations/:dataset/events", operationsHandler.Events)
	}

	// Admin routes (JWT + admin role)
	if adminHandler != nil {
		admin := r.Group("/api/v1/admin")
		admin.Use(middleware.JWTAuth(jwtManager))
		admin.Use(middleware.AdminAuth())
		{
			admin.POST("/invite-codes", adminHandler.CreateInviteCode)
			admin.GET("/invite-codes", adminHandler.ListInviteCodes)
		}
	}

	return r
}
