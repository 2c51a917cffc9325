package server

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	handlers "github.com/docgate-ai/docgate/pkg/handlers/http"
	"github.com/docgate-ai/docgate/pkg/middleware"
)

type Server struct {
	app    *fiber.App
	logger *logrus.Logger
	host   string
	port   int
}

func New(
	host string,
	port int,
	logger *logrus.Logger,
	transport *handlers.HandlerTransport,
	guards *middleware.GuardrailsMiddleware,
) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          5 * time.Minute,
		IdleTimeout:           120 * time.Second,
		BodyLimit:             2 * 1024 * 1024,
	})

	s := &Server{app: app, logger: logger, host: host, port: port}
	s.registerRoutes(transport, guards)
	return s
}

func (s *Server) registerRoutes(transport *handlers.HandlerTransport, guards *middleware.GuardrailsMiddleware) {
	s.app.Get("/health", transport.HealthHandler.Handle)

	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	s.app.Get("/metrics", func(c *fiber.Ctx) error {
		metricsHandler(c.Context())
		return nil
	})

	// System endpoints, not behind the input guard.
	s.app.Get("/conversations", transport.ListConversationsHandler.Handle)
	s.app.Get("/guardrails/status", transport.GuardrailsStatusHandler.Handle)

	protected := s.app.Group("/", guards.Middleware())
	protected.Post("/query", transport.QueryHandler.Handle)
	protected.Post("/chat", transport.ChatStreamHandler.Handle)
	protected.Get("/conversation/:thread_id/history", transport.HistoryHandler.Handle)
	protected.Delete("/conversation/:thread_id", transport.ClearHistoryHandler.Handle)
}

func (s *Server) Run() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	s.logger.WithField("addr", addr).Info("starting server")
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the fiber app for endpoint tests.
func (s *Server) App() *fiber.App {
	return s.app
}
