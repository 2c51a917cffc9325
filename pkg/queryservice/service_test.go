package queryservice_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docgate-ai/docgate/pkg/conversation"
	"github.com/docgate-ai/docgate/pkg/infra/llm"
	"github.com/docgate-ai/docgate/pkg/queryservice"
	"github.com/docgate-ai/docgate/pkg/types"
)

type stubLLM struct {
	reply        string
	err          error
	streamChunks []string
	lastPrompt   string
}

func (s *stubLLM) Complete(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	s.lastPrompt = prompt
	return s.reply, s.err
}

func (s *stubLLM) Stream(ctx context.Context, prompt string, opts llm.Options, chunks chan<- string) error {
	s.lastPrompt = prompt
	if s.err != nil {
		return s.err
	}
	for _, c := range s.streamChunks {
		select {
		case chunks <- c:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

type stubDocStore struct {
	schema     map[string]string
	docs       []map[string]interface{}
	lastFilter map[string]interface{}
	err        error
}

func (s *stubDocStore) Schema(ctx context.Context, collection string) (map[string]string, error) {
	return s.schema, nil
}

func (s *stubDocStore) ExecuteFilter(ctx context.Context, collection string, filter map[string]interface{}) ([]map[string]interface{}, error) {
	s.lastFilter = filter
	return s.docs, s.err
}

type stubFilterValidator struct {
	err    error
	called int
}

func (s *stubFilterValidator) ValidateFilterExpression(ctx context.Context, raw string) error {
	s.called++
	return s.err
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newService(t *testing.T, llmStub *stubLLM, docs *stubDocStore, fv *stubFilterValidator) (*queryservice.Service, *conversation.Store) {
	t.Helper()
	convo := conversation.NewStore()
	svc := queryservice.NewService(llmStub, docs, convo, fv, "documents", testLogger()).
		WithResultsDir(t.TempDir())
	return svc, convo
}

func TestConversationalReply(t *testing.T) {
	llmStub := &stubLLM{reply: "Ciao! Come posso aiutarti con i tuoi dati?"}
	svc, convo := newService(t, llmStub, &stubDocStore{}, &stubFilterValidator{})

	resp, err := svc.Query(context.Background(), "t1", "ciao", "")

	require.NoError(t, err)
	assert.Equal(t, "Ciao! Come posso aiutarti con i tuoi dati?", resp.Result)
	assert.False(t, resp.DataSaved)
	assert.Equal(t, 0, resp.DocumentCount)

	turns := convo.History("t1")
	require.Len(t, turns, 2)
	assert.Equal(t, "ciao", turns[0].Content)
}

func TestFilterExpressionIsExecuted(t *testing.T) {
	llmStub := &stubLLM{reply: `{"eta": {"$gt": 25}}`}
	docs := &stubDocStore{docs: []map[string]interface{}{
		{"nome": "Mario", "eta": float64(30)},
	}}
	fv := &stubFilterValidator{}
	svc, _ := newService(t, llmStub, docs, fv)

	resp, err := svc.Query(context.Background(), "t1", "Cerca utenti con età maggiore di 25", "")

	require.NoError(t, err)
	assert.Equal(t, 1, fv.called, "the expression is validated before execution")
	assert.Equal(t, map[string]interface{}{"eta": map[string]interface{}{"$gt": float64(25)}}, docs.lastFilter)
	assert.Equal(t, 1, resp.DocumentCount)
	assert.Contains(t, resp.Result, "Mario")
}

func TestCodeFencedFilterIsAccepted(t *testing.T) {
	llmStub := &stubLLM{reply: "```json\n{\"citta\": \"Roma\"}\n```"}
	docs := &stubDocStore{docs: []map[string]interface{}{}}
	svc, _ := newService(t, llmStub, docs, &stubFilterValidator{})

	resp, err := svc.Query(context.Background(), "t1", "trova documenti di Roma", "")

	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"citta": "Roma"}, docs.lastFilter)
	assert.Equal(t, 0, resp.DocumentCount)
}

func TestInvalidFilterExpressionBlocksExecution(t *testing.T) {
	llmStub := &stubLLM{reply: `{"eta": {"$gt": 25}}`}
	docs := &stubDocStore{}
	fv := &stubFilterValidator{err: &types.ValidationError{
		StatusCode: 422,
		Category:   types.CategoryFormat,
		Message:    "output is not valid JSON",
	}}
	svc, convo := newService(t, llmStub, docs, fv)

	_, err := svc.Query(context.Background(), "t1", "cerca utenti", "")

	require.Error(t, err)
	var valErr *types.ValidationError
	assert.ErrorAs(t, err, &valErr)
	assert.Nil(t, docs.lastFilter, "a rejected expression never reaches the store")
	assert.Empty(t, convo.History("t1"), "failed requests leave no history")
}

func TestLargeResultsAreSavedToFile(t *testing.T) {
	var many []map[string]interface{}
	for i := 0; i < 30; i++ {
		many = append(many, map[string]interface{}{"indice": float64(i), "nome": fmt.Sprintf("doc%d", i)})
	}
	llmStub := &stubLLM{reply: `{}`}
	svc, _ := newService(t, llmStub, &stubDocStore{docs: many}, &stubFilterValidator{})

	resp, err := svc.Query(context.Background(), "t1", "tutti i documenti", "")

	require.NoError(t, err)
	assert.True(t, resp.DataSaved)
	assert.Equal(t, 30, resp.DocumentCount)
	assert.Contains(t, resp.Result, "30 documenti")
	require.NotEmpty(t, resp.FilePath)

	raw, err := os.ReadFile(resp.FilePath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "doc29")
	assert.Equal(t, ".json", filepath.Ext(resp.FilePath))
}

func TestSmallResultsAreInlined(t *testing.T) {
	llmStub := &stubLLM{reply: `{}`}
	docs := &stubDocStore{docs: []map[string]interface{}{{"nome": "Mario"}}}
	svc, _ := newService(t, llmStub, docs, &stubFilterValidator{})

	resp, err := svc.Query(context.Background(), "t1", "tutti i documenti", "")

	require.NoError(t, err)
	assert.False(t, resp.DataSaved)
	assert.Empty(t, resp.FilePath)
	assert.Contains(t, resp.Result, `"nome": "Mario"`)
}

func TestThreadIDIsMintedWhenMissing(t *testing.T) {
	llmStub := &stubLLM{reply: "ciao"}
	svc, _ := newService(t, llmStub, &stubDocStore{}, &stubFilterValidator{})

	resp, err := svc.Query(context.Background(), "", "ciao", "")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.SessionID, "thread_"))
}

func TestHistoryFeedsThePrompt(t *testing.T) {
	llmStub := &stubLLM{reply: "Ti chiami Mario."}
	svc, convo := newService(t, llmStub, &stubDocStore{}, &stubFilterValidator{})
	convo.Append("t1", conversation.RoleHuman, "Mi chiamo Mario")
	convo.Append("t1", conversation.RoleAI, "Piacere Mario!")

	_, err := svc.Query(context.Background(), "t1", "Come mi chiamo?", "")

	require.NoError(t, err)
	assert.Contains(t, llmStub.lastPrompt, "Mi chiamo Mario")
	assert.Contains(t, llmStub.lastPrompt, "Piacere Mario!")
}

func TestStreamChatForwardsChunksAndRecordsHistory(t *testing.T) {
	llmStub := &stubLLM{streamChunks: []string{"Ecco ", "la ", "risposta."}}
	svc, convo := newService(t, llmStub, &stubDocStore{}, &stubFilterValidator{})

	out := make(chan string, 10)
	final, err := svc.StreamChat(context.Background(), "t1", "domanda", out)

	require.NoError(t, err)
	assert.Equal(t, "Ecco la risposta.", final)

	var received []string
	close(out)
	for c := range out {
		received = append(received, c)
	}
	assert.Equal(t, []string{"Ecco ", "la ", "risposta."}, received)

	turns := convo.History("t1")
	require.Len(t, turns, 2)
	assert.Equal(t, "Ecco la risposta.", turns[1].Content)
}

func TestStreamChatStopsWhenContextCancelled(t *testing.T) {
	chunks := make([]string, 50)
	for i := range chunks {
		chunks[i] = "pezzo "
	}
	llmStub := &stubLLM{streamChunks: chunks}
	svc, convo := newService(t, llmStub, &stubDocStore{}, &stubFilterValidator{})

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan string)
	done := make(chan error, 1)
	go func() {
		_, err := svc.StreamChat(ctx, "t1", "domanda", out)
		done <- err
	}()

	<-out
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("StreamChat did not return after cancellation")
	}
	assert.Empty(t, convo.History("t1"), "an aborted stream must leave no history")
}

func TestStreamErrorLeavesNoHistory(t *testing.T) {
	llmStub := &stubLLM{err: errors.New("connection lost")}
	svc, convo := newService(t, llmStub, &stubDocStore{}, &stubFilterValidator{})

	out := make(chan string, 10)
	_, err := svc.StreamChat(context.Background(), "t1", "domanda", out)

	require.Error(t, err)
	assert.Empty(t, convo.History("t1"))
}
