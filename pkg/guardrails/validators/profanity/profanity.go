package profanity

import (
	"context"
	"regexp"

	"github.com/sirupsen/logrus"

	"github.com/docgate-ai/docgate/pkg/types"
)

const (
	ValidatorName = "profanity_filter"
	maskToken     = "****"
)

// Validator masks profane terms and lets the request continue. It never
// fails: the rewrite path and the abort path stay disjoint, so it is always
// bound with the filter policy.
type Validator struct {
	logger   *logrus.Logger
	patterns []*regexp.Regexp
}

func NewValidator(logger *logrus.Logger, extraWords ...string) *Validator {
	words := append(append([]string{}, defaultWordlist...), extraWords...)
	patterns := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		patterns = append(patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(w)+`\b`))
	}
	return &Validator{logger: logger, patterns: patterns}
}

func (v *Validator) Name() string {
	return ValidatorName
}

func (v *Validator) Category() types.Category {
	return types.CategoryProfanity
}

func (v *Validator) Check(ctx context.Context, text string, metadata map[string]interface{}) (types.Verdict, error) {
	masked := text
	matched := 0
	for _, p := range v.patterns {
		if p.MatchString(masked) {
			masked = p.ReplaceAllString(masked, maskToken)
			matched++
		}
	}

	if matched == 0 {
		return types.Pass(text), nil
	}

	v.logger.WithFields(logrus.Fields{
		"validator": ValidatorName,
		"terms":     matched,
	}).Info("profanity masked")

	return types.PassWithRewrite(masked, text), nil
}
