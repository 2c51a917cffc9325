package guardrails

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/docgate-ai/docgate/pkg/infra/metrics"
	"github.com/docgate-ai/docgate/pkg/types"
)

// Guard runs an ordered chain of validators against one text value. The
// chain is built once at startup and is immutable afterwards; an empty
// guard is valid and passes everything through unchanged.
type Guard struct {
	name     string
	bindings []Binding
	logger   *logrus.Logger
}

func NewGuard(name string, logger *logrus.Logger, bindings ...Binding) *Guard {
	return &Guard{
		name:     name,
		bindings: bindings,
		logger:   logger,
	}
}

func (g *Guard) Name() string {
	return g.name
}

func (g *Guard) Len() int {
	return len(g.bindings)
}

// ValidatorNames lists the chain's validators in execution order.
func (g *Guard) ValidatorNames() []string {
	names := make([]string, 0, len(g.bindings))
	for _, b := range g.bindings {
		names = append(names, b.Validator.Name())
	}
	return names
}

// Validate runs the chain in construction order. Rewrites feed the next
// validator; the first Fail under a raise/reask policy aborts the chain.
func (g *Guard) Validate(ctx context.Context, req types.ValidationRequest) types.Verdict {
	if req.Text == "" {
		return types.Pass(req.Text)
	}

	current := req.Text
	rewritten := false

	for _, b := range g.bindings {
		verdict, err := b.Validator.Check(ctx, current, req.Metadata)
		if err != nil {
			if b.FailClosed {
				g.logger.WithError(err).WithFields(logrus.Fields{
					"guard":     g.name,
					"validator": b.Validator.Name(),
				}).Error("validator unavailable, blocking")
				metrics.ValidationVerdicts.WithLabelValues(g.name, b.Validator.Name(), metrics.VerdictError).Inc()
				return types.Fail(b.Validator.Category(), "validator unavailable")
			}
			g.logger.WithError(err).WithFields(logrus.Fields{
				"guard":     g.name,
				"validator": b.Validator.Name(),
			}).Warn("validator unavailable, skipping")
			metrics.ValidationVerdicts.WithLabelValues(g.name, b.Validator.Name(), metrics.VerdictError).Inc()
			continue
		}

		switch verdict.Kind {
		case types.VerdictFail:
			metrics.ValidationVerdicts.WithLabelValues(g.name, b.Validator.Name(), metrics.VerdictFail).Inc()
			if verdict.Category == "" {
				verdict.Category = b.Validator.Category()
			}
			g.logger.WithFields(logrus.Fields{
				"guard":     g.name,
				"validator": b.Validator.Name(),
				"category":  verdict.Category,
			}).Info("validation failed")
			return verdict
		case types.VerdictRewrite:
			metrics.ValidationVerdicts.WithLabelValues(g.name, b.Validator.Name(), metrics.VerdictRewrite).Inc()
			current = verdict.Output
			rewritten = true
		default:
			metrics.ValidationVerdicts.WithLabelValues(g.name, b.Validator.Name(), metrics.VerdictPass).Inc()
			if verdict.Output != "" {
				current = verdict.Output
			}
		}
	}

	if rewritten {
		return types.PassWithRewrite(current, req.Text)
	}
	return types.Pass(current)
}
