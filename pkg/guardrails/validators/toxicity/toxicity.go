package toxicity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/docgate-ai/docgate/pkg/infra/httpx"
	"github.com/docgate-ai/docgate/pkg/types"
)

const ValidatorName = "toxicity_detection"

type Granularity string

const (
	GranularityFull     Granularity = "full"
	GranularitySentence Granularity = "sentence"
)

// Scorer returns a toxicity score in [0,1] for a piece of text.
type Scorer interface {
	Score(ctx context.Context, text string) (float64, error)
}

type Config struct {
	Threshold   float64
	Granularity Granularity
}

type Validator struct {
	logger    *logrus.Logger
	scorer    Scorer
	threshold float64
	perUnit   bool
}

func NewValidator(logger *logrus.Logger, scorer Scorer, cfg Config) *Validator {
	return &Validator{
		logger:    logger,
		scorer:    scorer,
		threshold: cfg.Threshold,
		perUnit:   cfg.Granularity == GranularitySentence,
	}
}

func (v *Validator) Name() string {
	return ValidatorName
}

func (v *Validator) Category() types.Category {
	return types.CategoryToxic
}

func (v *Validator) Check(ctx context.Context, text string, metadata map[string]interface{}) (types.Verdict, error) {
	units := []string{text}
	if v.perUnit {
		units = splitSentences(text)
	}

	for _, unit := range units {
		score, err := v.scorer.Score(ctx, unit)
		if err != nil {
			return types.Verdict{}, fmt.Errorf("toxicity scoring: %w", err)
		}
		if score >= v.threshold {
			v.logger.WithFields(logrus.Fields{
				"validator": ValidatorName,
				"score":     score,
				"threshold": v.threshold,
			}).Warn("toxicity threshold exceeded")
			return types.Fail(
				types.CategoryToxic,
				fmt.Sprintf("toxicity score %.2f exceeds threshold %.2f", score, v.threshold),
			), nil
		}
	}
	return types.Pass(text), nil
}

// splitSentences breaks text on terminal punctuation. Sentence mode
// short-circuits on the first unit over threshold, which keeps moderation
// calls cheap for long outputs.
func splitSentences(text string) []string {
	var out []string
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(b.String()); s != "" {
				out = append(out, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		out = append(out, s)
	}
	if len(out) == 0 {
		out = []string{text}
	}
	return out
}

// ModerationScorer calls an OpenAI-compatible moderation endpoint and
// reduces the per-category scores to their maximum.
type ModerationScorer struct {
	client   httpx.Client
	endpoint string
	apiKey   string
}

func NewModerationScorer(client httpx.Client, endpoint, apiKey string) *ModerationScorer {
	return &ModerationScorer{client: client, endpoint: endpoint, apiKey: apiKey}
}

type moderationRequest struct {
	Input string `json:"input"`
}

type moderationResponse struct {
	Results []struct {
		CategoryScores map[string]float64 `json:"category_scores"`
	} `json:"results"`
}

func (s *ModerationScorer) Score(ctx context.Context, text string) (float64, error) {
	body, err := json.Marshal(moderationRequest{Input: text})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal moderation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create moderation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("moderation request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read moderation response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("moderation API returned status %d", resp.StatusCode)
	}

	var parsed moderationResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return 0, fmt.Errorf("failed to parse moderation response: %w", err)
	}
	if len(parsed.Results) == 0 {
		return 0, fmt.Errorf("moderation API returned no results")
	}

	var max float64
	for _, score := range parsed.Results[0].CategoryScores {
		if score > max {
			max = score
		}
	}
	return max, nil
}
