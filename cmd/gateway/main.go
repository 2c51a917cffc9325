package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/docgate-ai/docgate/pkg/cache"
	"github.com/docgate-ai/docgate/pkg/config"
	"github.com/docgate-ai/docgate/pkg/conversation"
	"github.com/docgate-ai/docgate/pkg/documents"
	"github.com/docgate-ai/docgate/pkg/guardrails"
	handlers "github.com/docgate-ai/docgate/pkg/handlers/http"
	"github.com/docgate-ai/docgate/pkg/infra/httpx"
	infraLogger "github.com/docgate-ai/docgate/pkg/infra/logger"
	"github.com/docgate-ai/docgate/pkg/infra/llm"
	"github.com/docgate-ai/docgate/pkg/middleware"
	"github.com/docgate-ai/docgate/pkg/queryservice"
	"github.com/docgate-ai/docgate/pkg/server"
)

const defaultCollection = "documents"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	logger := infraLogger.NewLogger()

	if err := config.Load("./config"); err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.GetConfig()

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.User,
		cfg.Database.Password, cfg.Database.DBName, cfg.Database.SSLMode,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	cacheInstance, err := cache.NewCache(cache.Settings{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, running without schema cache")
		cacheInstance = nil
	}

	llmClient := llm.NewOllamaClient(
		cfg.LLM.Endpoint,
		cfg.LLM.Model,
		time.Duration(cfg.LLM.TimeoutSeconds*float64(time.Second)),
		httpx.NewBreakerClient("llm", nil, 30*time.Second, 5),
		logger,
	)
	classifierClient := llm.NewOllamaClient(
		cfg.Guardrails.TopicClassifierEndpoint,
		cfg.Guardrails.TopicClassifierModel,
		time.Duration(cfg.Guardrails.TopicClassifierTimeoutSeconds*float64(time.Second)),
		httpx.NewBreakerClient("topic-classifier", nil, 30*time.Second, 5),
		logger,
	)

	pipeline := guardrails.NewPipeline(
		logger,
		classifierClient,
		httpx.NewBreakerClient("moderation", nil, 30*time.Second, 5),
		guardrails.Config{
			InputToxicThreshold:      cfg.Guardrails.InputToxicThreshold,
			OutputToxicThreshold:     cfg.Guardrails.OutputToxicThreshold,
			ToxicGranularity:         cfg.Guardrails.ToxicGranularity,
			ModerationEndpoint:       cfg.Guardrails.ModerationEndpoint,
			ModerationKey:            cfg.Guardrails.ModerationKey,
			ProfanityFilter:          cfg.Guardrails.ProfanityFilter,
			EnablePIIDetection:       cfg.Guardrails.EnablePIIDetection,
			EnableTopicRestriction:   cfg.Guardrails.EnableTopicRestriction,
			EnableInjectionDetection: cfg.Guardrails.EnableInjectionDetection,
			BlockedTopics:            cfg.Guardrails.BlockedTopics,
		},
	)

	docStore, err := documents.NewStore(db, cacheInstance, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize document store: %v", err)
	}

	service := queryservice.NewService(
		llmClient,
		docStore,
		conversation.NewStore(),
		pipeline,
		defaultCollection,
		logger,
	)

	checks := map[string]handlers.Pinger{"database": docStore}
	if cacheInstance != nil {
		checks["cache"] = cacheInstance
	}
	if pinger, ok := llmClient.(handlers.Pinger); ok {
		checks["llm"] = pinger
	}

	transport := &handlers.HandlerTransport{
		QueryHandler:             handlers.NewQueryHandler(logger, service),
		ChatStreamHandler:        handlers.NewChatStreamHandler(logger, service, pipeline),
		HistoryHandler:           handlers.NewHistoryHandler(logger, service),
		ClearHistoryHandler:      handlers.NewClearHistoryHandler(logger, service),
		ListConversationsHandler: handlers.NewListConversationsHandler(logger, service),
		GuardrailsStatusHandler:  handlers.NewGuardrailsStatusHandler(logger, pipeline),
		HealthHandler:            handlers.NewHealthHandler(logger, checks),
	}

	srv := server.New(
		cfg.Server.Host,
		cfg.Server.Port,
		logger,
		transport,
		middleware.NewGuardrailsMiddleware(logger, pipeline),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Run)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return srv.Shutdown()
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("server exited with error")
	}
	if cacheInstance != nil {
		_ = cacheInstance.Close()
	}
}
