package guardrails

import (
	"context"

	"github.com/docgate-ai/docgate/pkg/types"
)

// Validator is a single content check. Check must always produce a verdict
// for well-formed input; a non-nil error reports an infrastructure failure
// of the validator's backing service, which the guard resolves according to
// the binding's fail-open/fail-closed setting. Check must not mutate text
// or any external state.
//
//go:generate mockery --name=Validator --dir=. --output=./mocks --filename=validator_mock.go --case=underscore --with-expecter
type Validator interface {
	Name() string
	Category() types.Category
	Check(ctx context.Context, text string, metadata map[string]interface{}) (types.Verdict, error)
}

// Binding attaches a failure policy to one validator inside a guard.
type Binding struct {
	Validator Validator
	Policy    types.FailurePolicy
	// FailClosed converts infrastructure errors into a Fail verdict instead
	// of skipping the validator. Only structural/format validation of
	// generated filter expressions uses it.
	FailClosed bool
}

func Bind(v Validator, policy types.FailurePolicy) Binding {
	return Binding{Validator: v, Policy: policy}
}

func BindFailClosed(v Validator, policy types.FailurePolicy) Binding {
	return Binding{Validator: v, Policy: policy, FailClosed: true}
}
