package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/erp/pricing/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Version is the API version reported by the system endpoints
const Version = "1.0.0"

// SystemHandler handles system-related API endpoints
type SystemHandler struct {
	BaseHandler
	startTime time.Time
	rules     func() int
}

// NewSystemHandler creates a new SystemHandler. rules reports the size of the
// loaded rule snapshot and may be nil when no snapshot is configured.
func NewSystemHandler(rules func() int) *SystemHandler {
	return &SystemHandler{
		startTime: time.Now(),
		rules:     rules,
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name          string `json:"name" example:"Pricing Engine API"`
	Version       string `json:"version" example:"1.0.0"`
	GoVersion     string `json:"go_version" example:"go1.25.5"`
	Uptime        string `json:"uptime" example:"1h30m45s"`
	SnapshotRules int    `json:"snapshot_rules" example:"12"`
}

// GetSystemInfo serves GET /api/v1/system/info with the version, uptime and
// the size of the loaded rule snapshot
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      "Pricing Engine API",
		Version:   Version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}
	if h.rules != nil {
		info.SnapshotRules = h.rules()
	}

	h.Success(c, info)
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message" example:"pong"`
	Timestamp string `json:"timestamp" example:"2026-01-23T12:00:00Z"`
}

// Ping serves GET /api/v1/system/ping
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// Health answers liveness probes outside the versioned API
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"status": "healthy"}))
}
