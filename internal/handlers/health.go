package handlers

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	stateStarting int32 = iota
	stateReady
	stateDraining
)

// Pinger is anything the readiness probe can check
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	Version string

	state       atomic.Int32
	database    Pinger
	cache       Pinger
	pingTimeout time.Duration
}

// NewHealthHandler creates a new health handler in the starting state
func NewHealthHandler(version string, database, cache Pinger) *HealthHandler {
	return &HealthHandler{
		Version:     version,
		database:    database,
		cache:       cache,
		pingTimeout: 2 * time.Second,
	}
}

// SetReady marks the service ready to take traffic
func (h *HealthHandler) SetReady() {
	h.state.Store(stateReady)
}

// SetDraining marks the service as shutting down
func (h *HealthHandler) SetDraining() {
	h.state.Store(stateDraining)
}

func (h *HealthHandler) stateName() string {
	switch h.state.Load() {
	case stateReady:
		return "ready"
	case stateDraining:
		return "draining"
	default:
		return "starting"
	}
}

// Check returns the health status of the service
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "OK",
		"service": "whatsapp-relay",
		"version": h.Version,
	})
}

// Ready reports 200 only when started and both the database and the cache answer
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	if h.state.Load() != stateReady {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": h.stateName(),
		})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), h.pingTimeout)
	defer cancel()

	checks := fiber.Map{"database": "ok", "cache": "ok"}
	ready := true
	if err := h.database.Ping(ctx); err != nil {
		checks["database"] = err.Error()
		ready = false
	}
	if err := h.cache.Ping(ctx); err != nil {
		checks["cache"] = err.Error()
		ready = false
	}

	if !ready {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "degraded",
			"checks": checks,
		})
	}
	return c.JSON(fiber.Map{
		"status": h.stateName(),
		"checks": checks,
	})
}
