package handler

import (
	"log/slog"
	"net/http"

	"github.com/cuongbtq/drive-transcriber/internal/api/dto"
	"github.com/gin-gonic/gin"
)

// SystemHandler serves liveness, readiness and the manual scan trigger
type SystemHandler struct {
	serviceName string
	logger      *slog.Logger
	database    HealthChecker
	scanner     Scanner
}

func NewSystemHandler(deps *Dependencies) *SystemHandler {
	return &SystemHandler{
		serviceName: deps.ServiceName,
		logger:      deps.Logger,
		database:    deps.Database,
		scanner:     deps.Scanner,
	}
}

// Ping handles GET /ping
func (h *SystemHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Health handles GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	if h.database != nil {
		if err := h.database.HealthCheck(c.Request.Context()); err != nil {
			h.logger.Warn("Health check failed", slog.String("error", err.Error()))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": h.serviceName,
				"error":   err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": h.serviceName,
	})
}

// Scan handles POST /api/v1/scan
func (h *SystemHandler) Scan(c *gin.Context) {
	if h.scanner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Scanner not available",
		})
		return
	}

	if !h.scanner.Trigger() {
		c.JSON(http.StatusConflict, dto.ScanResponse{Status: "already_running"})
		return
	}

	h.logger.Info("Manual scan triggered", slog.String("ip", c.ClientIP()))
	c.JSON(http.StatusAccepted, dto.ScanResponse{Status: "started"})
}
