package middleware

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/docgate-ai/docgate/pkg/guardrails"
	"github.com/docgate-ai/docgate/pkg/types"
)

// GuardrailsMiddleware validates request and response bodies on the
// protected routes. Input violations reject the request before it reaches a
// handler; output validation is soft and can only rewrite (mask), never
// block, except on the streaming route where the handler's own deferred
// adapter takes over.
type GuardrailsMiddleware struct {
	logger   *logrus.Logger
	pipeline *guardrails.Pipeline
}

func NewGuardrailsMiddleware(logger *logrus.Logger, pipeline *guardrails.Pipeline) *GuardrailsMiddleware {
	return &GuardrailsMiddleware{logger: logger, pipeline: pipeline}
}

func (m *GuardrailsMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()

		if m.validatesInput(path, c.Method()) {
			proceed, err := m.checkInput(c)
			if !proceed {
				return err
			}
		}

		if err := c.Next(); err != nil {
			return err
		}

		if m.validatesOutput(path, c.Method()) {
			m.checkOutput(c)
		}
		return nil
	}
}

func (m *GuardrailsMiddleware) validatesInput(path, method string) bool {
	return method == fiber.MethodPost && (path == "/query" || path == "/chat")
}

func (m *GuardrailsMiddleware) validatesOutput(path, method string) bool {
	if method == fiber.MethodPost && path == "/query" {
		return true
	}
	return method == fiber.MethodGet && strings.HasSuffix(path, "/history")
}

// checkInput validates the query field of the request body. A rewrite
// (masking) replaces the body so the handler only ever sees sanitized text.
// proceed is false when a response was already written.
func (m *GuardrailsMiddleware) checkInput(c *fiber.Ctx) (proceed bool, err error) {
	var body map[string]interface{}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	query, _ := body["query"].(string)
	if query == "" {
		return true, nil
	}

	validated, rejection := m.pipeline.ValidateInput(c.UserContext(), query)
	if rejection != nil {
		m.logger.WithFields(logrus.Fields{
			"path":     c.Path(),
			"category": rejection.Category,
		}).Info("request blocked by input validation")
		return false, c.Status(fiber.StatusBadRequest).JSON(types.RejectionResponse{
			Error:         "Content validation failed",
			Message:       rejection.Message,
			ViolationType: rejection.Category,
		})
	}

	if validated != query {
		body["query"] = validated
		if patched, err := json.Marshal(body); err == nil {
			c.Request().SetBody(patched)
		}
	}
	return true, nil
}

// checkOutput validates generated text in a successful JSON response and
// swaps in the sanitized version when masking changed it.
func (m *GuardrailsMiddleware) checkOutput(c *fiber.Ctx) {
	if c.Response().StatusCode() != fiber.StatusOK {
		return
	}
	contentType := string(c.Response().Header.ContentType())
	if !strings.HasPrefix(contentType, fiber.MIMEApplicationJSON) {
		return
	}

	var body map[string]interface{}
	if err := json.Unmarshal(c.Response().Body(), &body); err != nil {
		return
	}

	changed := false
	if result, ok := body["result"].(string); ok && result != "" {
		validated := m.pipeline.ValidateOutput(c.UserContext(), result)
		if validated != result {
			body["result"] = validated
			changed = true
		}
	} else if history, ok := body["conversation_history"].([]interface{}); ok {
		changed = m.checkHistory(c, history)
	}

	if changed {
		if patched, err := json.Marshal(body); err == nil {
			c.Response().SetBody(patched)
		}
	}
}

// checkHistory masks assistant turns in a history payload in place.
func (m *GuardrailsMiddleware) checkHistory(c *fiber.Ctx, history []interface{}) bool {
	changed := false
	for _, raw := range history {
		turn, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if role, _ := turn["type"].(string); role != "ai" {
			continue
		}
		content, _ := turn["content"].(string)
		if content == "" {
			continue
		}
		validated := m.pipeline.ValidateOutput(c.UserContext(), content)
		if validated != content {
			turn["content"] = validated
			changed = true
		}
	}
	return changed
}
