package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthResponse reports liveness.
type HealthResponse struct {
	Status    string    `json:"status" example:"OK"`
	Message   string    `json:"message" example:"Server is running"`
	Timestamp time.Time `json:"timestamp"`
	// Uptime in seconds.
	Uptime float64 `json:"uptime" example:"3600.5"`
}

// Health godoc
// @ID          health
// @Summary     Liveness probe
// @Tags        Health
// @Produce     json
// @Success     200  {object}  handlers.HealthResponse
// @Router      /health [get]
func (h *Handlers) Health(c *gin.Context) {
	now := time.Now().UTC()
	ok(c, http.StatusOK, HealthResponse{
		Status:    "OK",
		Message:   "Server is running",
		Timestamp: now,
		Uptime:    now.Sub(h.started).Seconds(),
	})
}
