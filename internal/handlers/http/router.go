package http

import (
	"net/http"

	"stagepass/internal/core/ports"
	"stagepass/internal/core/services"
	"stagepass/internal/infrastructure/middleware"
	"stagepass/internal/infrastructure/monitoring"
	"stagepass/pkg/config"
	"stagepass/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterDeps are the collaborators the HTTP surface is built from.
type RouterDeps struct {
	Config            *config.Config
	Logger            *zap.Logger
	AuthService       services.AuthService
	CredentialService ports.CredentialService
	StreamService     ports.StreamService
	AccessService     ports.AccessService
	HealthChecker     *monitoring.HealthChecker
	// Metrics may be nil; /metrics is then not served.
	Metrics *monitoring.PrometheusCollector
}

// NewRouter builds the gin engine with the global middleware chain and all routes.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	log := deps.Logger.Sugar()

	var httpMetrics middleware.HTTPMetrics
	if deps.Metrics != nil {
		httpMetrics = deps.Metrics
	}

	router := gin.New()
	router.Use(
		middleware.RecoveryMiddleware(log),
		middleware.RequestIDMiddleware(),
		middleware.TracingMiddleware(),
		middleware.RequestLoggingMiddleware(logger.NewContextLogger(deps.Logger), httpMetrics),
		middleware.CORSMiddleware(cfg.Server.AllowedOrigins),
		middleware.ErrorHandlerMiddleware(log),
		middleware.NewHTTPRateLimitMiddleware(cfg),
	)

	credentialHandler := NewCredentialHandler(deps.CredentialService)
	streamHandler := NewStreamHandler(deps.StreamService)
	accessHandler := NewAccessHandler(deps.AccessService)
	healthHandler := NewHealthHandler(cfg.App.ID, cfg.App.Certificate != "", deps.HealthChecker)

	router.GET("/ping", healthHandler.Ping)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/token", middleware.OptionalAuthMiddleware(deps.AuthService), credentialHandler.GetToken)

	if deps.Metrics != nil && cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(deps.AuthService))
	{
		api.POST("/credentials", credentialHandler.IssueCredential)
		api.GET("/permissions", accessHandler.CheckPermissions)
		api.POST("/streams/join", streamHandler.JoinStream)
		api.GET("/streams/:id", streamHandler.GetStream)

		admin := api.Group("/admin")
		admin.Use(middleware.AdminMiddleware(deps.AccessService))
		{
			admin.POST("/rules", accessHandler.UpdateRules)
			admin.POST("/streams", streamHandler.CreateStream)
			admin.POST("/streams/:id/status", streamHandler.UpdateStreamStatus)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "NOT_FOUND",
			"message": "route not found",
		})
	})

	return router
}
