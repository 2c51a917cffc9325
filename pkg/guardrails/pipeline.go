package guardrails

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/docgate-ai/docgate/pkg/guardrails/validators/format"
	"github.com/docgate-ai/docgate/pkg/guardrails/validators/injection"
	"github.com/docgate-ai/docgate/pkg/guardrails/validators/pii"
	"github.com/docgate-ai/docgate/pkg/guardrails/validators/profanity"
	"github.com/docgate-ai/docgate/pkg/guardrails/validators/topic"
	"github.com/docgate-ai/docgate/pkg/guardrails/validators/toxicity"
	"github.com/docgate-ai/docgate/pkg/infra/httpx"
	"github.com/docgate-ai/docgate/pkg/infra/llm"
	"github.com/docgate-ai/docgate/pkg/infra/metrics"
	"github.com/docgate-ai/docgate/pkg/types"
)

const (
	inputGuardName  = "input"
	outputGuardName = "output"
	filterGuardName = "filter"
)

// Config selects which validators each guard carries and how they are tuned.
type Config struct {
	InputToxicThreshold  float64
	OutputToxicThreshold float64
	ToxicGranularity     string
	ModerationEndpoint   string
	ModerationKey        string

	ProfanityFilter          bool
	EnablePIIDetection       bool
	EnableTopicRestriction   bool
	EnableInjectionDetection bool

	BlockedTopics []string
}

// Pipeline owns the three guards of the gateway: the input guard in front of
// user text, the output guard behind generated replies, and the fail-closed
// filter guard for generated filter expressions. Guards degrade
// independently: a validator whose backing service is not configured is
// omitted at construction with a warning, never silently.
type Pipeline struct {
	logger      *logrus.Logger
	inputGuard  *Guard
	outputGuard *Guard
	filterGuard *Guard
}

func NewPipeline(logger *logrus.Logger, llmClient llm.Client, httpClient httpx.Client, cfg Config) *Pipeline {
	var inputBindings []Binding
	var outputBindings []Binding

	if cfg.EnableInjectionDetection {
		inputBindings = append(inputBindings, Bind(injection.NewValidator(logger), types.PolicyRaise))
	}
	if cfg.EnablePIIDetection {
		inputBindings = append(inputBindings, Bind(pii.NewValidator(logger), types.PolicyRaise))
	}
	if cfg.EnableTopicRestriction {
		if llmClient == nil {
			logger.Warn("topic restriction enabled but no LLM client configured, omitting validator")
		} else {
			inputBindings = append(inputBindings,
				Bind(topic.NewValidator(logger, llmClient, cfg.BlockedTopics), types.PolicyRaise))
		}
	}

	scorer := buildScorer(logger, httpClient, cfg)
	if scorer != nil {
		granularity := toxicity.Granularity(cfg.ToxicGranularity)
		inputBindings = append(inputBindings, Bind(
			toxicity.NewValidator(logger, scorer, toxicity.Config{
				Threshold:   cfg.InputToxicThreshold,
				Granularity: granularity,
			}), types.PolicyRaise))
		outputBindings = append(outputBindings, Bind(
			toxicity.NewValidator(logger, scorer, toxicity.Config{
				Threshold:   cfg.OutputToxicThreshold,
				Granularity: granularity,
			}), types.PolicyRaise))
	}

	if cfg.ProfanityFilter {
		inputBindings = append(inputBindings, Bind(profanity.NewValidator(logger), types.PolicyFilter))
		outputBindings = append(outputBindings, Bind(profanity.NewValidator(logger), types.PolicyFilter))
	}

	p := &Pipeline{
		logger:      logger,
		inputGuard:  NewGuard(inputGuardName, logger, inputBindings...),
		outputGuard: NewGuard(outputGuardName, logger, outputBindings...),
		filterGuard: NewGuard(filterGuardName, logger,
			BindFailClosed(format.NewValidator(logger), types.PolicyRaise)),
	}

	logger.WithFields(logrus.Fields{
		"input_validators":  p.inputGuard.Len(),
		"output_validators": p.outputGuard.Len(),
	}).Info("guardrails pipeline initialized")
	return p
}

func buildScorer(logger *logrus.Logger, httpClient httpx.Client, cfg Config) toxicity.Scorer {
	if cfg.ModerationEndpoint == "" {
		logger.Warn("no moderation endpoint configured, omitting toxicity validators")
		return nil
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return toxicity.NewModerationScorer(httpClient, cfg.ModerationEndpoint, cfg.ModerationKey)
}

// OutputGuard exposes the output chain for deferred validation of streamed
// responses.
func (p *Pipeline) OutputGuard() *Guard {
	return p.outputGuard
}

// Status describes the active validator chains for the status endpoint.
type Status struct {
	InputValidators  []string `json:"input_validators"`
	OutputValidators []string `json:"output_validators"`
}

func (p *Pipeline) Status() Status {
	return Status{
		InputValidators:  p.inputGuard.ValidatorNames(),
		OutputValidators: p.outputGuard.ValidatorNames(),
	}
}

// ValidateInput runs the input guard. A failure produces a rejection whose
// message is the static per-category text. Topic and PII verdicts carry
// their own message: it names blocked topics or entity labels only and is
// safe to show.
func (p *Pipeline) ValidateInput(ctx context.Context, text string) (string, *types.Rejection) {
	verdict := p.inputGuard.Validate(ctx, types.ValidationRequest{Text: text})
	if verdict.Failed() {
		metrics.Rejections.WithLabelValues(inputGuardName, string(verdict.Category)).Inc()
		message := MessageFor(verdict.Category)
		if verdict.Category == types.CategoryTopic || verdict.Category == types.CategoryPII {
			message = verdict.Reason
		}
		return "", &types.Rejection{Category: verdict.Category, Message: message}
	}
	return verdict.Output, nil
}

// ValidateOutput runs the output guard in soft mode: a violation in
// generated text is logged and counted but the original text still goes to
// the caller. Rewrites (masking) are applied.
func (p *Pipeline) ValidateOutput(ctx context.Context, text string) string {
	verdict := p.outputGuard.Validate(ctx, types.ValidationRequest{Text: text})
	if verdict.Failed() {
		metrics.Rejections.WithLabelValues(outputGuardName, string(verdict.Category)).Inc()
		p.logger.WithFields(logrus.Fields{
			"guard":    outputGuardName,
			"category": verdict.Category,
		}).Warn("generated output violated policy, passing through")
		return text
	}
	return verdict.Output
}

// ValidateFilterExpression checks a generated filter expression before it is
// executed. This is the one hard gate on the output side: a malformed
// expression, or an unavailable validator, blocks execution.
func (p *Pipeline) ValidateFilterExpression(ctx context.Context, raw string) error {
	verdict := p.filterGuard.Validate(ctx, types.ValidationRequest{Text: raw})
	if verdict.Failed() {
		metrics.Rejections.WithLabelValues(filterGuardName, string(verdict.Category)).Inc()
		return &types.ValidationError{
			StatusCode: 422,
			Category:   verdict.Category,
			Message:    verdict.Reason,
		}
	}
	return nil
}
