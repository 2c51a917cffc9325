package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type clearHistoryHandler struct {
	logger  *logrus.Logger
	service QueryService
}

func NewClearHistoryHandler(logger *logrus.Logger, service QueryService) Handler {
	return &clearHistoryHandler{logger: logger, service: service}
}

func (h *clearHistoryHandler) Handle(c *fiber.Ctx) error {
	threadID := c.Params("thread_id")
	if threadID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "thread_id is required"})
	}

	if !h.service.ClearHistory(threadID) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "thread not found"})
	}

	h.logger.WithField("thread_id", threadID).Info("conversation cleared")
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"thread_id": threadID,
		"status":    "cleared",
	})
}
