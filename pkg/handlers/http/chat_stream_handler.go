package http

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/docgate-ai/docgate/pkg/guardrails"
	"github.com/docgate-ai/docgate/pkg/queryservice"
	"github.com/docgate-ai/docgate/pkg/types"
)

type chatStreamHandler struct {
	logger   *logrus.Logger
	service  QueryService
	pipeline *guardrails.Pipeline
}

func NewChatStreamHandler(logger *logrus.Logger, service QueryService, pipeline *guardrails.Pipeline) Handler {
	return &chatStreamHandler{logger: logger, service: service, pipeline: pipeline}
}

// Handle streams the reply over SSE. Every chunk is written to the client
// before validation; once the stream completes, the accumulated text runs
// through the output guard and violations are logged, never retracted.
func (h *chatStreamHandler) Handle(c *fiber.Ctx) error {
	var req types.QueryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "query is required"})
	}

	threadID := req.SessionID
	if threadID == "" {
		threadID = queryservice.NewThreadID()
	}
	input := req.Query

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		// The fiber context is recycled once the handler returns; the
		// writer must not touch it. A client disconnect surfaces as a
		// flush error and cancels generation.
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		adapter := guardrails.NewStreamAdapter(h.pipeline.OutputGuard(), h.logger)

		gone := false
		write := func(event types.StreamEvent) {
			if gone {
				return
			}
			if err := h.writeEvent(w, adapter, event); err != nil {
				h.logger.WithError(err).WithField("thread_id", threadID).
					Info("client disconnected, cancelling stream")
				cancel()
				gone = true
			}
		}

		write(types.StreamEvent{Type: types.StreamConnection, ThreadID: threadID})
		write(types.StreamEvent{Type: types.StreamStart, ThreadID: threadID})

		type streamResult struct {
			final string
			err   error
		}
		out := make(chan string)
		resCh := make(chan streamResult, 1)
		go func() {
			final, err := h.service.StreamChat(ctx, threadID, input, out)
			close(out)
			resCh <- streamResult{final: final, err: err}
		}()

		chunks := 0
		for chunk := range out {
			chunks++
			write(types.StreamEvent{Type: types.StreamContent, Chunk: chunk})
		}

		res := <-resCh
		switch {
		case gone:
		case res.err != nil:
			h.logger.WithError(res.err).Error("chat stream failed")
			write(types.StreamEvent{Type: types.StreamError, Error: "stream generation failed"})
		default:
			write(types.StreamEvent{
				Type:         types.StreamComplete,
				ThreadID:     threadID,
				FinalContent: res.final,
				TotalChunks:  chunks,
			})
		}
		write(types.StreamEvent{Type: types.StreamDone})

		// Deferred validation still runs over whatever was streamed,
		// even when the client left early.
		adapter.Finalize(context.Background())
	})

	return nil
}

func (h *chatStreamHandler) writeEvent(w *bufio.Writer, adapter *guardrails.StreamAdapter, event types.StreamEvent) error {
	msg, err := json.Marshal(event)
	if err != nil {
		h.logger.WithError(err).Error("failed to marshal stream event")
		return nil
	}
	frame := fmt.Sprintf("data: %s\n\n", msg)
	if _, err := w.WriteString(frame); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	adapter.OnChunk([]byte(frame))
	return nil
}
