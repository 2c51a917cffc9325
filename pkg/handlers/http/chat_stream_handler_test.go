package http

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docgate-ai/docgate/pkg/guardrails"
	"github.com/docgate-ai/docgate/pkg/types"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

type scriptedStreamService struct {
	chunks []string
	final  string
	err    error
}

func (s *scriptedStreamService) Query(ctx context.Context, threadID, input, collection string) (*types.QueryResponse, error) {
	return nil, nil
}

func (s *scriptedStreamService) StreamChat(ctx context.Context, threadID, input string, out chan<- string) (string, error) {
	for _, c := range s.chunks {
		select {
		case out <- c:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.final, s.err
}

func (s *scriptedStreamService) History(threadID string) []types.ConversationTurn { return nil }
func (s *scriptedStreamService) ClearHistory(threadID string) bool                { return false }
func (s *scriptedStreamService) ActiveThreads() []string                          { return nil }

type failingWriter struct {
	err error
}

func (f *failingWriter) Write(p []byte) (int, error) {
	return 0, f.err
}

func TestWriteEventSurfacesWriterFailure(t *testing.T) {
	h := &chatStreamHandler{logger: quietLogger()}
	adapter := guardrails.NewStreamAdapter(guardrails.NewGuard("output", quietLogger()), quietLogger())
	w := bufio.NewWriterSize(&failingWriter{err: errors.New("connection reset by peer")}, 16)

	err := h.writeEvent(w, adapter, types.StreamEvent{Type: types.StreamContent, Chunk: "ciao"})

	require.Error(t, err, "a broken client connection must be reported to the caller")
}

func TestChatStreamHandlerEmitsEventSequence(t *testing.T) {
	service := &scriptedStreamService{chunks: []string{"ciao ", "mondo"}, final: "ciao mondo"}
	pipeline := guardrails.NewPipeline(quietLogger(), nil, nil, guardrails.Config{})
	app := fiber.New()
	app.Post("/chat", NewChatStreamHandler(quietLogger(), service, pipeline).Handle)

	req := httptest.NewRequest(fiber.MethodPost, "/chat", strings.NewReader(`{"query":"saluta"}`))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)

	for _, typ := range []types.StreamEventType{
		types.StreamConnection, types.StreamStart, types.StreamContent,
		types.StreamComplete, types.StreamDone,
	} {
		assert.Contains(t, text, fmt.Sprintf(`"type":%q`, typ))
	}
	assert.Contains(t, text, `"final_content":"ciao mondo"`)
	assert.Contains(t, text, `"total_chunks":2`)
}

func TestChatStreamHandlerReportsStreamFailure(t *testing.T) {
	service := &scriptedStreamService{chunks: []string{"parziale "}, err: errors.New("upstream gone")}
	pipeline := guardrails.NewPipeline(quietLogger(), nil, nil, guardrails.Config{})
	app := fiber.New()
	app.Post("/chat", NewChatStreamHandler(quietLogger(), service, pipeline).Handle)

	req := httptest.NewRequest(fiber.MethodPost, "/chat", strings.NewReader(`{"query":"saluta"}`))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, `"type":"error"`)
	assert.NotContains(t, text, "upstream gone", "internal errors must not reach the client")
}
