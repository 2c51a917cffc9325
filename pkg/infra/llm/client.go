package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/docgate-ai/docgate/pkg/infra/httpx"
)

// Options control decoding for a single completion call.
type Options struct {
	Temperature float64
	MaxTokens   int
	Stop        []string
}

// Client is the text-generation surface consumed by the query service and
// the topic classifier.
//
//go:generate mockery --name=Client --dir=. --output=./mocks --filename=client_mock.go --case=underscore --with-expecter
type Client interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
	Stream(ctx context.Context, prompt string, opts Options, chunks chan<- string) error
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options,omitempty"`
}

type generateOptions struct {
	Temperature float64  `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type ollamaClient struct {
	endpoint string
	model    string
	client   httpx.Client
	timeout  time.Duration
	logger   *logrus.Logger
}

// NewOllamaClient talks to an Ollama-compatible /api/generate endpoint.
func NewOllamaClient(endpoint, model string, timeout time.Duration, client httpx.Client, logger *logrus.Logger) Client {
	if client == nil {
		client = &http.Client{}
	}
	return &ollamaClient{
		endpoint: endpoint,
		model:    model,
		client:   client,
		timeout:  timeout,
		logger:   logger,
	}
}

func (c *ollamaClient) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.send(ctx, prompt, opts, false)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read completion response: %w", err)
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to unmarshal completion response: %w", err)
	}
	return out.Response, nil
}

func (c *ollamaClient) Stream(ctx context.Context, prompt string, opts Options, chunks chan<- string) error {
	resp, err := c.send(ctx, prompt, opts, true)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var out generateResponse
		if err := json.Unmarshal(line, &out); err != nil {
			c.logger.WithError(err).Debug("skipping malformed stream line")
			continue
		}
		if out.Response != "" {
			// The consumer may stop receiving on cancellation; an
			// unguarded send would block this goroutine forever and hold
			// the response body open.
			select {
			case chunks <- out.Response:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if out.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading completion stream: %w", err)
	}
	return nil
}

// Ping checks endpoint reachability for health reporting.
func (c *ollamaClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("completion endpoint returned %d", resp.StatusCode)
	}
	return nil
}

func (c *ollamaClient) send(ctx context.Context, prompt string, opts Options, stream bool) (*http.Response, error) {
	payload := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: stream,
		Options: generateOptions{
			Temperature: opts.Temperature,
			NumPredict:  opts.MaxTokens,
			Stop:        opts.Stop,
		},
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, fmt.Errorf("completion endpoint returned %d: %s", resp.StatusCode, string(body))
	}
	return resp, nil
}
