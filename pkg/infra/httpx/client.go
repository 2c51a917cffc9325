package httpx

import (
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// Client is the minimal HTTP surface validators and the LLM client depend
// on, so tests can substitute a stub.
type Client interface {
	Do(req *http.Request) (*http.Response, error)
}

type breakerClient struct {
	inner   Client
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerClient wraps a client with a circuit breaker. While the breaker
// is open every Do call fails fast without touching the network, which the
// callers treat like any other transport error (fail-open for the topic
// classifier).
func NewBreakerClient(name string, inner Client, openTimeout time.Duration, maxFailures uint32) Client {
	if inner == nil {
		inner = &http.Client{}
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
	}
	return &breakerClient{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

func (c *breakerClient) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.breaker.Execute(func() (interface{}, error) {
		return c.inner.Do(req)
	})
	if err != nil {
		return nil, err
	}
	r, ok := resp.(*http.Response)
	if !ok {
		return nil, gobreaker.ErrOpenState
	}
	return r, nil
}
