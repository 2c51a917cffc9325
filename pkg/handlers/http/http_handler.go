package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/docgate-ai/docgate/pkg/types"
)

type Handler interface {
	Handle(ctx *fiber.Ctx) error
}

type HandlerTransport struct {
	QueryHandler             Handler
	ChatStreamHandler        Handler
	HistoryHandler           Handler
	ClearHistoryHandler      Handler
	ListConversationsHandler Handler
	GuardrailsStatusHandler  Handler
	HealthHandler            Handler
}

// QueryService is the application surface the transport layer calls into.
type QueryService interface {
	Query(ctx context.Context, threadID, input, collection string) (*types.QueryResponse, error)
	StreamChat(ctx context.Context, threadID, input string, out chan<- string) (string, error)
	History(threadID string) []types.ConversationTurn
	ClearHistory(threadID string) bool
	ActiveThreads() []string
}
