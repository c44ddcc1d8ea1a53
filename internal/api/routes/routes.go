// Package routes wires the HTTP surface of the service.
package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qrisgate-service/qrisgate_service/internal/api/handlers"
	"github.com/qrisgate-service/qrisgate_service/internal/api/middleware"
	"github.com/qrisgate-service/qrisgate_service/pkg/logger"
)

const createRequestsPerMinute = 10

// Setup registers all routes on the router
func Setup(router *gin.Engine, depositHandlers *handlers.DepositHandlers, log *logger.Logger) {
	router.GET("/healthz", depositHandlers.Healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RequestID(), middleware.MaxRequestBodySize())
	{
		v1.GET("/methods", middleware.TimeoutMiddleware(30*time.Second), depositHandlers.ListMethods)

		dep := v1.Group("/deposit")
		{
			dep.GET("", middleware.TimeoutMiddleware(30*time.Second), depositHandlers.GetDeposit)
			dep.POST("",
				middleware.CreateRateLimit(createRequestsPerMinute),
				middleware.TimeoutMiddleware(30*time.Second),
				depositHandlers.CreateDeposit)
			dep.GET("/quote", middleware.TimeoutMiddleware(30*time.Second), depositHandlers.QuoteDeposit)
			dep.POST("/check", middleware.TimeoutMiddleware(30*time.Second), depositHandlers.CheckDeposit)
			dep.POST("/cancel", middleware.TimeoutMiddleware(30*time.Second), depositHandlers.CancelDeposit)
			dep.POST("/reset", depositHandlers.ResetDeposit)
			dep.GET("/history", middleware.TimeoutMiddleware(10*time.Second), depositHandlers.GetHistory)
			// No timeout: the stream stays open as long as the client listens
			dep.GET("/events", depositHandlers.StreamEvents)
		}
	}
}
