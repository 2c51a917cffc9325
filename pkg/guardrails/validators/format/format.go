package format

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/valyala/fastjson"

	"github.com/docgate-ai/docgate/pkg/types"
)

const ValidatorName = "format_validation"

// Validator checks that generated filter expressions are well-formed JSON
// objects before they reach the document store. Unlike the content
// validators this one guards correctness, not safety, and is bound
// fail-closed: a broken expression must never be executed.
type Validator struct {
	logger *logrus.Logger
}

func NewValidator(logger *logrus.Logger) *Validator {
	return &Validator{logger: logger}
}

func (v *Validator) Name() string {
	return ValidatorName
}

func (v *Validator) Category() types.Category {
	return types.CategoryFormat
}

func (v *Validator) Check(ctx context.Context, text string, metadata map[string]interface{}) (types.Verdict, error) {
	trimmed := strings.TrimSpace(text)
	parsed, err := fastjson.Parse(trimmed)
	if err != nil {
		v.logger.WithField("validator", ValidatorName).Warn("generated expression is not valid JSON")
		return types.Fail(types.CategoryFormat, "output is not valid JSON"), nil
	}
	if parsed.Type() != fastjson.TypeObject {
		v.logger.WithField("validator", ValidatorName).Warn("generated expression is not a JSON object")
		return types.Fail(types.CategoryFormat, "output is not a JSON object"), nil
	}
	return types.Pass(text), nil
}
