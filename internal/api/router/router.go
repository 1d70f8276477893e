package router

import (
	"github.com/cuongbtq/drive-transcriber/internal/api/handler"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware(deps.AllowedOrigins))

	systemHandler := handler.NewSystemHandler(deps)
	jobHandler := handler.NewJobHandler(deps)
	eventHandler := handler.NewEventHandler(deps)

	r.GET("/ping", systemHandler.Ping)
	r.GET("/health", systemHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// GET /ws - WebSocket job event stream
	r.GET("/ws", eventHandler.WebSocket)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		jobs := v1.Group("/jobs")
		{
			// GET /api/v1/jobs - List jobs with status filter and pagination
			jobs.GET("", jobHandler.ListJobs)

			// GET /api/v1/jobs/:file_id - Get the job for a file
			jobs.GET("/:file_id", jobHandler.GetJob)
		}

		// POST /api/v1/scan - Run a cycle now
		v1.POST("/scan", systemHandler.Scan)

		// GET /api/v1/events - Server-sent job events
		v1.GET("/events", eventHandler.Stream)
	}

	return r
}
