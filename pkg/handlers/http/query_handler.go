package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/docgate-ai/docgate/pkg/types"
)

type queryHandler struct {
	logger  *logrus.Logger
	service QueryService
}

func NewQueryHandler(logger *logrus.Logger, service QueryService) Handler {
	return &queryHandler{logger: logger, service: service}
}

func (h *queryHandler) Handle(c *fiber.Ctx) error {
	var req types.QueryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "query is required"})
	}

	h.logger.WithFields(logrus.Fields{
		"thread_id":  req.SessionID,
		"collection": req.Collection,
	}).Info("query request received")

	resp, err := h.service.Query(c.UserContext(), req.SessionID, req.Query, req.Collection)
	if err != nil {
		var valErr *types.ValidationError
		if errors.As(err, &valErr) {
			return c.Status(valErr.StatusCode).JSON(types.RejectionResponse{
				Error:         "Content validation failed",
				Message:       valErr.Message,
				ViolationType: valErr.Category,
			})
		}
		h.logger.WithError(err).Error("query processing failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "query processing failed",
		})
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}
