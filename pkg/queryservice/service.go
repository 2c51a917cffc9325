package queryservice

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/docgate-ai/docgate/pkg/conversation"
	"github.com/docgate-ai/docgate/pkg/infra/llm"
	"github.com/docgate-ai/docgate/pkg/types"
)

const (
	largeResultDocLimit  = 25
	largeResultByteLimit = 50000
	defaultResultsDir    = "temp_results"
)

// DocumentStore is the slice of the documents layer the service needs.
type DocumentStore interface {
	Schema(ctx context.Context, collection string) (map[string]string, error)
	ExecuteFilter(ctx context.Context, collection string, filter map[string]interface{}) ([]map[string]interface{}, error)
}

// FilterValidator gates generated filter expressions before execution.
type FilterValidator interface {
	ValidateFilterExpression(ctx context.Context, raw string) error
}

// Service turns natural-language requests into either conversational
// replies or executed filter queries, with per-thread history feeding the
// prompt.
type Service struct {
	llm               llm.Client
	docs              DocumentStore
	conversations     *conversation.Store
	filterValidator   FilterValidator
	logger            *logrus.Logger
	resultsDir        string
	defaultCollection string
}

func NewService(
	llmClient llm.Client,
	docs DocumentStore,
	conversations *conversation.Store,
	filterValidator FilterValidator,
	defaultCollection string,
	logger *logrus.Logger,
) *Service {
	return &Service{
		llm:               llmClient,
		docs:              docs,
		conversations:     conversations,
		filterValidator:   filterValidator,
		logger:            logger,
		resultsDir:        defaultResultsDir,
		defaultCollection: defaultCollection,
	}
}

// WithResultsDir overrides where oversized result sets are written.
func (s *Service) WithResultsDir(dir string) *Service {
	s.resultsDir = dir
	return s
}

// NewThreadID mints a thread identifier for requests that did not carry one.
func NewThreadID() string {
	return "thread_" + uuid.NewString()[:8]
}

// Query answers one request. The model either replies conversationally or
// emits a filter expression; expressions are structurally validated before
// they touch the store, and oversized result sets are written to disk with
// a summary returned in their place.
func (s *Service) Query(ctx context.Context, threadID, input, collection string) (*types.QueryResponse, error) {
	if threadID == "" {
		threadID = NewThreadID()
	}
	if collection == "" {
		collection = s.defaultCollection
	}

	schema, err := s.docs.Schema(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection schema: %w", err)
	}

	history := s.conversations.History(threadID)
	reply, err := s.llm.Complete(ctx, buildPrompt(schema, history, input), llm.Options{Temperature: 0.1})
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	cleaned := stripCodeFences(reply)

	var result string
	var docCount int
	dataSaved := false
	filePath := ""

	if looksLikeFilter(cleaned) {
		if err := s.filterValidator.ValidateFilterExpression(ctx, cleaned); err != nil {
			return nil, err
		}
		var filter map[string]interface{}
		if err := json.Unmarshal([]byte(cleaned), &filter); err != nil {
			return nil, &types.ValidationError{
				StatusCode: 422,
				Category:   types.CategoryFormat,
				Message:    "generated filter expression is not decodable",
				Err:        err,
			}
		}

		docs, err := s.docs.ExecuteFilter(ctx, collection, filter)
		if err != nil {
			return nil, fmt.Errorf("filter execution failed: %w", err)
		}
		docCount = len(docs)

		result, dataSaved, filePath, err = s.renderResults(threadID, input, docs)
		if err != nil {
			return nil, err
		}
	} else {
		result = cleaned
	}

	s.conversations.Append(threadID, conversation.RoleHuman, input)
	s.conversations.Append(threadID, conversation.RoleAI, result)

	return &types.QueryResponse{
		SessionID:     threadID,
		Result:        result,
		DataSaved:     dataSaved,
		FilePath:      filePath,
		DocumentCount: docCount,
		CreatedAt:     time.Now(),
	}, nil
}

// renderResults inlines small result sets as indented JSON; large ones go
// to a file and the caller gets a summary instead.
func (s *Service) renderResults(threadID, input string, docs []map[string]interface{}) (result string, saved bool, path string, err error) {
	raw, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return "", false, "", fmt.Errorf("failed to serialize results: %w", err)
	}

	if len(docs) <= largeResultDocLimit && len(raw) <= largeResultByteLimit {
		return string(raw), false, "", nil
	}

	path, err = s.saveLargeResults(threadID, raw)
	if err != nil {
		return "", false, "", err
	}

	s.logger.WithFields(logrus.Fields{
		"thread_id": threadID,
		"documents": len(docs),
		"bytes":     len(raw),
		"file":      path,
	}).Info("large result set saved to file")

	summary := fmt.Sprintf(
		"Query eseguita con successo: %d documenti trovati. "+
			"Il risultato supera il limite di risposta ed è stato salvato su file: %s",
		len(docs), path,
	)
	return summary, true, path, nil
}

func (s *Service) saveLargeResults(threadID string, raw []byte) (string, error) {
	if err := os.MkdirAll(s.resultsDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}
	filename := fmt.Sprintf("%s_%s.json", threadID, time.Now().Format("20060102_150405"))
	path := filepath.Join(s.resultsDir, filename)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("failed to write results file: %w", err)
	}
	return path, nil
}

// StreamChat streams a conversational reply chunk by chunk into out and
// returns the assembled text. Conversation turns are recorded only after
// the stream finished, so an aborted stream leaves history untouched.
func (s *Service) StreamChat(ctx context.Context, threadID, input string, out chan<- string) (string, error) {
	if threadID == "" {
		threadID = NewThreadID()
	}

	history := s.conversations.History(threadID)
	prompt := buildPrompt(nil, history, input)

	chunks := make(chan string)
	var assembled strings.Builder

	errCh := make(chan error, 1)
	go func() {
		defer close(chunks)
		errCh <- s.llm.Stream(ctx, prompt, llm.Options{Temperature: 0.1}, chunks)
	}()

	for chunk := range chunks {
		assembled.WriteString(chunk)
		select {
		case out <- chunk:
		case <-ctx.Done():
			return assembled.String(), ctx.Err()
		}
	}
	if err := <-errCh; err != nil {
		return assembled.String(), err
	}

	final := assembled.String()
	s.conversations.Append(threadID, conversation.RoleHuman, input)
	s.conversations.Append(threadID, conversation.RoleAI, final)
	return final, nil
}

// History returns a thread's turns in transport form.
func (s *Service) History(threadID string) []types.ConversationTurn {
	turns := s.conversations.History(threadID)
	out := make([]types.ConversationTurn, 0, len(turns))
	for _, t := range turns {
		out = append(out, types.ConversationTurn{
			Type:      t.Role,
			Content:   t.Content,
			CreatedAt: t.At,
		})
	}
	return out
}

// ActiveThreads lists the identifiers of threads with stored history.
func (s *Service) ActiveThreads() []string {
	return s.conversations.Threads()
}

// ClearHistory drops a thread and reports whether it existed.
func (s *Service) ClearHistory(threadID string) bool {
	return s.conversations.Clear(threadID)
}
