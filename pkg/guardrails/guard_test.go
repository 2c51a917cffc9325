package guardrails_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/docgate-ai/docgate/pkg/guardrails"
	"github.com/docgate-ai/docgate/pkg/types"
)

type stubValidator struct {
	name     string
	category types.Category
	verdict  types.Verdict
	err      error
	calls    int
}

func (s *stubValidator) Name() string             { return s.name }
func (s *stubValidator) Category() types.Category { return s.category }
func (s *stubValidator) Check(ctx context.Context, text string, metadata map[string]interface{}) (types.Verdict, error) {
	s.calls++
	if s.err != nil {
		return types.Verdict{}, s.err
	}
	if s.verdict.Kind == types.VerdictPass && s.verdict.Output == "" {
		return types.Pass(text), nil
	}
	return s.verdict, nil
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestEmptyGuardPassesEverything(t *testing.T) {
	guard := guardrails.NewGuard("test", testLogger())

	verdict := guard.Validate(context.Background(), types.ValidationRequest{Text: "anything at all"})

	assert.False(t, verdict.Failed())
	assert.Equal(t, "anything at all", verdict.Output)
}

func TestEmptyTextShortCircuits(t *testing.T) {
	v := &stubValidator{name: "v1", category: types.CategoryToxic}
	guard := guardrails.NewGuard("test", testLogger(), guardrails.Bind(v, types.PolicyRaise))

	verdict := guard.Validate(context.Background(), types.ValidationRequest{Text: ""})

	assert.False(t, verdict.Failed())
	assert.Equal(t, 0, v.calls, "validators must not run on empty input")
}

func TestFirstFailureAbortsChain(t *testing.T) {
	first := &stubValidator{
		name:     "v1",
		category: types.CategoryInjection,
		verdict:  types.Fail(types.CategoryInjection, "blocked"),
	}
	second := &stubValidator{name: "v2", category: types.CategoryToxic}
	guard := guardrails.NewGuard("test", testLogger(),
		guardrails.Bind(first, types.PolicyRaise),
		guardrails.Bind(second, types.PolicyRaise),
	)

	verdict := guard.Validate(context.Background(), types.ValidationRequest{Text: "payload"})

	assert.True(t, verdict.Failed())
	assert.Equal(t, types.CategoryInjection, verdict.Category)
	assert.Equal(t, 0, second.calls, "validators after a failure must not run")
}

func TestRewriteFeedsNextValidator(t *testing.T) {
	masker := &stubValidator{
		name:     "masker",
		category: types.CategoryProfanity,
		verdict:  types.PassWithRewrite("clean ****", "clean dirty"),
	}
	inspector := &stubValidator{name: "inspector", category: types.CategoryToxic}
	guard := guardrails.NewGuard("test", testLogger(),
		guardrails.Bind(masker, types.PolicyFilter),
		guardrails.Bind(inspector, types.PolicyRaise),
	)

	verdict := guard.Validate(context.Background(), types.ValidationRequest{Text: "clean dirty"})

	assert.True(t, verdict.Rewritten())
	assert.Equal(t, "clean ****", verdict.Output)
	assert.Equal(t, "clean dirty", verdict.Original)
	assert.Equal(t, 1, inspector.calls)
}

func TestValidatorErrorFailsOpen(t *testing.T) {
	broken := &stubValidator{name: "broken", category: types.CategoryToxic, err: errors.New("backend down")}
	next := &stubValidator{name: "next", category: types.CategoryProfanity}
	guard := guardrails.NewGuard("test", testLogger(),
		guardrails.Bind(broken, types.PolicyRaise),
		guardrails.Bind(next, types.PolicyRaise),
	)

	verdict := guard.Validate(context.Background(), types.ValidationRequest{Text: "some text"})

	assert.False(t, verdict.Failed(), "infrastructure errors must not block")
	assert.Equal(t, 1, next.calls, "the chain continues past a broken validator")
}

func TestFailClosedBindingBlocksOnError(t *testing.T) {
	broken := &stubValidator{name: "broken", category: types.CategoryFormat, err: errors.New("backend down")}
	guard := guardrails.NewGuard("test", testLogger(),
		guardrails.BindFailClosed(broken, types.PolicyRaise),
	)

	verdict := guard.Validate(context.Background(), types.ValidationRequest{Text: `{"a":1}`})

	assert.True(t, verdict.Failed())
	assert.Equal(t, types.CategoryFormat, verdict.Category)
}

func TestCategoryDefaultsFromValidator(t *testing.T) {
	v := &stubValidator{
		name:     "v",
		category: types.CategoryPII,
		verdict:  types.Verdict{Kind: types.VerdictFail, Reason: "found"},
	}
	guard := guardrails.NewGuard("test", testLogger(), guardrails.Bind(v, types.PolicyRaise))

	verdict := guard.Validate(context.Background(), types.ValidationRequest{Text: "x y z"})

	assert.Equal(t, types.CategoryPII, verdict.Category)
}

func TestValidationIsIdempotent(t *testing.T) {
	v := &stubValidator{name: "v", category: types.CategoryToxic}
	guard := guardrails.NewGuard("test", testLogger(), guardrails.Bind(v, types.PolicyRaise))
	req := types.ValidationRequest{Text: "same input"}

	first := guard.Validate(context.Background(), req)
	second := guard.Validate(context.Background(), req)

	assert.Equal(t, first, second)
}
