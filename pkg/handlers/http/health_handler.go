package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Pinger is a dependency whose liveness the health endpoint reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthHandler struct {
	logger *logrus.Logger
	checks map[string]Pinger
}

func NewHealthHandler(logger *logrus.Logger, checks map[string]Pinger) Handler {
	return &healthHandler{logger: logger, checks: checks}
}

func (h *healthHandler) Handle(c *fiber.Ctx) error {
	status := fiber.StatusOK
	components := fiber.Map{}

	for name, check := range h.checks {
		if err := check.Ping(c.UserContext()); err != nil {
			h.logger.WithError(err).WithField("component", name).Warn("health check failed")
			components[name] = "unavailable"
			status = fiber.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	overall := "healthy"
	if status != fiber.StatusOK {
		overall = "degraded"
	}
	return c.Status(status).JSON(fiber.Map{
		"status":     overall,
		"components": components,
	})
}
