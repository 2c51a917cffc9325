package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/docgate-ai/docgate/pkg/guardrails"
	"github.com/docgate-ai/docgate/pkg/types"
)

// protectedEndpoints names the routes sitting behind the input guard.
var protectedEndpoints = []string{
	"/query",
	"/chat",
	"/conversation/{thread_id}/history",
	"/conversation/{thread_id}",
}

type guardrailsStatusHandler struct {
	logger   *logrus.Logger
	pipeline *guardrails.Pipeline
}

func NewGuardrailsStatusHandler(logger *logrus.Logger, pipeline *guardrails.Pipeline) Handler {
	return &guardrailsStatusHandler{logger: logger, pipeline: pipeline}
}

func (h *guardrailsStatusHandler) Handle(c *fiber.Ctx) error {
	status := h.pipeline.Status()
	return c.Status(fiber.StatusOK).JSON(types.GuardrailsStatusResponse{
		GuardrailsActive:   len(status.InputValidators)+len(status.OutputValidators) > 0,
		ProtectedEndpoints: protectedEndpoints,
		InputValidators:    status.InputValidators,
		OutputValidators:   status.OutputValidators,
	})
}
