package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/clip-extract-go/internal/domain"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// HealthHandler handles health check requests
type HealthHandler struct {
	repo domain.DownloadRepository
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(repo domain.DownloadRepository) *HealthHandler {
	return &HealthHandler{repo: repo}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database string `json:"database"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:   "ok",
		Version:  Version,
		Database: "ok",
	}
	if _, err := h.repo.GetStats(); err != nil {
		response.Status = "degraded"
		response.Database = err.Error()
	}

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if _, err := h.repo.GetStats(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "history database unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
