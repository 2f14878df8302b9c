package health

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Pinger is the dependency probe surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves liveness and readiness probes.
type Handler struct {
	store   Pinger
	version string
}

// NewHandler creates a health handler.
func NewHandler(store Pinger, version string) *Handler {
	return &Handler{store: store, version: version}
}

// Health reports overall service health including the recipe store.
func (h *Handler) Health(c *gin.Context) {
	status := "ok"
	code := http.StatusOK
	storeStatus := "ok"

	if err := h.store.Ping(c.Request.Context()); err != nil {
		status = "degraded"
		storeStatus = err.Error()
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":  status,
		"version": h.version,
		"store":   storeStatus,
	})
}

// Live reports process liveness only.
func (h *Handler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports whether the service can accept traffic.
func (h *Handler) Ready(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
