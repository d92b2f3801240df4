package http

import (
	"net/http"
	"time"

	"stagepass/internal/infrastructure/monitoring"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	appID          string
	hasCertificate bool
	checker        *monitoring.HealthChecker
	startTime      time.Time
}

func NewHealthHandler(appID string, hasCertificate bool, checker *monitoring.HealthChecker) *HealthHandler {
	return &HealthHandler{
		appID:          appID,
		hasCertificate: hasCertificate,
		checker:        checker,
		startTime:      time.Now(),
	}
}

func (h *HealthHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"timestamp":      time.Now().UTC().Format(time.RFC3339Nano),
		"appId":          h.appID,
		"hasCertificate": h.hasCertificate,
	})
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    monitoring.StatusHealthy,
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
	})
}

// Ready reports 503 while any dependency check fails.
func (h *HealthHandler) Ready(c *gin.Context) {
	status := h.checker.CheckAll(c.Request.Context())
	if status.Status != monitoring.StatusHealthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":       "not_ready",
			"timestamp":    status.Timestamp,
			"dependencies": status.Checks,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "ready",
		"timestamp":    status.Timestamp,
		"dependencies": status.Checks,
	})
}
