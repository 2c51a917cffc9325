package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/docgate-ai/docgate/pkg/types"
)

type listConversationsHandler struct {
	logger  *logrus.Logger
	service QueryService
}

func NewListConversationsHandler(logger *logrus.Logger, service QueryService) Handler {
	return &listConversationsHandler{logger: logger, service: service}
}

func (h *listConversationsHandler) Handle(c *fiber.Ctx) error {
	threads := h.service.ActiveThreads()
	return c.Status(fiber.StatusOK).JSON(types.ConversationsResponse{
		ActiveThreads: threads,
		TotalCount:    len(threads),
	})
}
