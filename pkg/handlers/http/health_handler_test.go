package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	handlers "github.com/docgate-ai/docgate/pkg/handlers/http"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(ctx context.Context) error {
	return s.err
}

func healthApp(checks map[string]handlers.Pinger) *fiber.App {
	app := fiber.New()
	app.Get("/health", handlers.NewHealthHandler(testLogger(), checks).Handle)
	return app
}

func TestHealthAllComponentsUp(t *testing.T) {
	app := healthApp(map[string]handlers.Pinger{
		"database": stubPinger{},
		"cache":    stubPinger{},
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/health", nil), -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestHealthDegradedComponent(t *testing.T) {
	app := healthApp(map[string]handlers.Pinger{
		"database": stubPinger{},
		"cache":    stubPinger{err: errors.New("connection refused")},
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/health", nil), -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "degraded", body["status"])
	components := body["components"].(map[string]interface{})
	assert.Equal(t, "unavailable", components["cache"])
	assert.Equal(t, "ok", components["database"])
}
