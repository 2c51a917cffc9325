package llm_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docgate-ai/docgate/pkg/infra/llm"
)

type stubStreamClient struct {
	body string
}

func (s *stubStreamClient) Do(req *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(s.body)),
	}, nil
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func streamBody(lines int) string {
	var b strings.Builder
	for i := 0; i < lines; i++ {
		b.WriteString(`{"response":"chunk "}` + "\n")
	}
	b.WriteString(`{"response":"","done":true}` + "\n")
	return b.String()
}

func TestStreamForwardsAllChunks(t *testing.T) {
	client := llm.NewOllamaClient("http://llm.local", "test-model", 0,
		&stubStreamClient{body: streamBody(3)}, testLogger())

	chunks := make(chan string, 10)
	err := client.Stream(context.Background(), "prompt", llm.Options{}, chunks)
	require.NoError(t, err)
	close(chunks)

	var got []string
	for c := range chunks {
		got = append(got, c)
	}
	assert.Equal(t, []string{"chunk ", "chunk ", "chunk "}, got)
}

func TestStreamReturnsWhenConsumerCancels(t *testing.T) {
	client := llm.NewOllamaClient("http://llm.local", "test-model", 0,
		&stubStreamClient{body: streamBody(50)}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	chunks := make(chan string)
	done := make(chan error, 1)
	go func() {
		done <- client.Stream(ctx, "prompt", llm.Options{}, chunks)
	}()

	// Take one chunk, then cancel and stop receiving. The stream
	// goroutine must not stay blocked on the next send.
	<-chunks
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Stream did not return after context cancellation")
	}
}
