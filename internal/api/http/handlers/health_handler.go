package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/clearbridge/support-sync/internal/persistence"
)

// HealthHandler serves liveness/readiness probes.
type HealthHandler struct {
	postgres *persistence.Postgres
	redis    *persistence.Redis
}

// NewHealthHandler constructs the handler. Either dependency may be
// nil when the corresponding backend is not configured.
func NewHealthHandler(postgres *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{postgres: postgres, redis: redis}
}

// Live GET /health/live.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready GET /health/ready.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	components := fiber.Map{}
	healthy := true

	if h.postgres != nil && h.postgres.PoolHandle() != nil {
		if err := h.postgres.PoolHandle().Ping(c.UserContext()); err != nil {
			components["postgres"] = "unreachable"
			healthy = false
		} else {
			components["postgres"] = "ok"
		}
	} else {
		components["postgres"] = "in-memory"
	}

	if h.redis != nil {
		if err := h.redis.Ping(c.UserContext()); err != nil {
			components["redis"] = "unreachable"
			healthy = false
		} else {
			components["redis"] = "ok"
		}
	} else {
		components["redis"] = "disabled"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{"components": components})
}
