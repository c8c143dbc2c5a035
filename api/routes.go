package api

import (
	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/txwatch/api/handlers"
	"github.com/customeros/txwatch/api/middleware"
	"github.com/customeros/txwatch/interfaces"
	"github.com/customeros/txwatch/internal/logger"
	"github.com/customeros/txwatch/internal/tracing"
)

const (
	APIKeyHeader  = "X-TXWATCH-API-KEY"
	AppSourceREST = "rest"
)

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(r *gin.Engine, processor interfaces.Processor, log logger.Logger, apikey string) {
	if processor == nil {
		panic("Processor cannot be nil")
	}

	// Add recovery middlewares
	r.Use(gin.Recovery())                                         // Gin's built-in recovery
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer())) // Our custom Jaeger recovery

	// Health check and status endpoints (no custom context needed)
	r.GET("/health", handlers.HealthCheck)
	r.GET("/status", handlers.Status(processor))

	apiKeyMiddleware := middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  APIKeyHeader,
		ValidAPIKey: apikey,
	})

	api := r.Group("/v1")
	api.Use(apiKeyMiddleware)
	api.Use(middleware.CustomContextMiddleware(AppSourceREST))
	api.Use(middleware.TracingMiddleware())
	{
		api.POST("/cycles", handlers.TriggerCycle(processor, log))
	}
}
