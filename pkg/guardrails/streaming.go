package guardrails

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/valyala/fastjson"

	"github.com/docgate-ai/docgate/pkg/infra/metrics"
	"github.com/docgate-ai/docgate/pkg/types"
)

// Chunks shorter than this in total are skipped: fragments too small to
// classify produce noise, not signal.
const minValidatableLength = 20

// StreamAdapter validates a streamed response after the fact. Chunks are
// forwarded to the client before validation ever runs; the adapter only
// accumulates what was sent and, once the stream ends, runs the output guard
// over the assembled text. A violation at that point is detection, not
// prevention: it is logged and counted, never retracted from the client.
//
// An adapter serves exactly one stream and is not safe for concurrent use.
type StreamAdapter struct {
	guard     *Guard
	logger    *logrus.Logger
	builder   strings.Builder
	chunks    int
	finalized bool
}

func NewStreamAdapter(guard *Guard, logger *logrus.Logger) *StreamAdapter {
	return &StreamAdapter{guard: guard, logger: logger}
}

// OnChunk records one outbound SSE frame. It must be called after the frame
// has been written to the client, with the exact bytes that were sent.
func (a *StreamAdapter) OnChunk(raw []byte) {
	a.builder.Write(raw)
	a.chunks++
	metrics.StreamChunks.Inc()
}

func (a *StreamAdapter) Chunks() int {
	return a.chunks
}

// Finalize runs deferred validation over the accumulated stream. It is
// idempotent: only the first call validates, later calls return a pass.
func (a *StreamAdapter) Finalize(ctx context.Context) types.Verdict {
	if a.finalized {
		return types.Pass("")
	}
	a.finalized = true

	text := extractStreamText(a.builder.String())
	if len(text) < minValidatableLength {
		return types.Pass(text)
	}

	verdict := a.guard.Validate(ctx, types.ValidationRequest{Text: text})
	if verdict.Failed() {
		metrics.StreamViolations.WithLabelValues(string(verdict.Category)).Inc()
		a.logger.WithFields(logrus.Fields{
			"category": verdict.Category,
			"chunks":   a.chunks,
		}).Warn("policy violation detected in completed stream")
	}
	return verdict
}

// extractStreamText reassembles the response text from raw SSE frames.
// Content events are concatenated in order; a complete event carries the
// authoritative final text and wins over the accumulation.
func extractStreamText(raw string) string {
	var assembled strings.Builder
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")

		event, err := fastjson.Parse(payload)
		if err != nil {
			continue
		}
		switch string(event.GetStringBytes("type")) {
		case string(types.StreamContent):
			assembled.Write(event.GetStringBytes("chunk"))
		case string(types.StreamComplete):
			if final := event.GetStringBytes("final_content"); len(final) > 0 {
				return string(final)
			}
		}
	}
	return assembled.String()
}
