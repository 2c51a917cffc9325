package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/docgate-ai/docgate/pkg/types"
)

type historyHandler struct {
	logger  *logrus.Logger
	service QueryService
}

func NewHistoryHandler(logger *logrus.Logger, service QueryService) Handler {
	return &historyHandler{logger: logger, service: service}
}

func (h *historyHandler) Handle(c *fiber.Ctx) error {
	threadID := c.Params("thread_id")
	if threadID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "thread_id is required"})
	}

	turns := h.service.History(threadID)
	return c.Status(fiber.StatusOK).JSON(types.HistoryResponse{
		ThreadID:            threadID,
		ConversationHistory: turns,
	})
}
