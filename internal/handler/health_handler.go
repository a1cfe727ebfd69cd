package handler

import (
	"net/http"
	"os/exec"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	db *sqlx.DB
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db *sqlx.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Liveness handles GET /healthz
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz
// Ready means the database answers and pdftoppm is on PATH; without the
// latter every bundle upload fails at rasterization.
func (h *HealthHandler) Readiness(c *gin.Context) {
	checks := gin.H{"database": "up", "pdftoppm": "found"}
	healthy := true

	if err := h.db.PingContext(c.Request.Context()); err != nil {
		checks["database"] = "down"
		healthy = false
	}
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		checks["pdftoppm"] = "missing"
		healthy = false
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": checks})
}
