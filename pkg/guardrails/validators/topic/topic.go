package topic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/docgate-ai/docgate/pkg/infra/llm"
	"github.com/docgate-ai/docgate/pkg/infra/metrics"
	"github.com/docgate-ai/docgate/pkg/types"
)

const ValidatorName = "topic_restriction"

var defaultBlockedTopics = []string{
	"consigli medici personali",
	"opinioni politiche",
	"consigli finanziari personali",
	"contenuti inappropriati",
}

// Stage 1 phrase lists per blocked category. A hit blocks immediately
// without an LLM round-trip, unless the analysis-context override also
// matches, in which case the text falls through to the classifier.
var keywordStage = map[string][]string{
	"medical": {
		"suggerisci", "consigli per", "rimedio", "cura per",
		"mal di", "cosa prendo", "farmaco", "medicina",
	},
	"political": {
		"per chi votare", "chi votare", "opinione politica",
		"che partito", "elezioni consigli",
	},
	"financial": {
		"conviene comprare", "conviene investire", "dove investire",
		"consigli di investimento", "che azioni comprare",
	},
}

// Analysis vocabulary suppresses a keyword hit. The override is itself
// keyword-based and an adversarial mix of both vocabularies defeats it;
// such text still goes through the Stage 2 classifier rather than being
// allowed outright.
var overrideWords = []string{"analisi", "analysis", "dati", "database", "query", "report"}

type Validator struct {
	logger        *logrus.Logger
	llm           llm.Client
	blockedTopics []string
	cache         *classificationCache
}

func NewValidator(logger *logrus.Logger, client llm.Client, blockedTopics []string) *Validator {
	if len(blockedTopics) == 0 {
		blockedTopics = defaultBlockedTopics
	}
	return &Validator{
		logger:        logger,
		llm:           client,
		blockedTopics: blockedTopics,
		cache:         newClassificationCache(),
	}
}

func (v *Validator) Name() string {
	return ValidatorName
}

func (v *Validator) Category() types.Category {
	return types.CategoryTopic
}

func (v *Validator) Check(ctx context.Context, text string, metadata map[string]interface{}) (types.Verdict, error) {
	lower := strings.ToLower(text)

	if category, hit := keywordHit(lower); hit {
		if hasOverride(lower) {
			v.logger.WithFields(logrus.Fields{
				"validator": ValidatorName,
				"keyword":   category,
			}).Debug("keyword hit suppressed by analysis context, deferring to classifier")
		} else {
			v.logger.WithFields(logrus.Fields{
				"validator": ValidatorName,
				"keyword":   category,
			}).Info("blocked topic matched by keyword stage")
			return types.Fail(types.CategoryTopic, v.blockedMessage()), nil
		}
	}

	allowed := v.classify(ctx, text)
	if !allowed {
		return types.Fail(types.CategoryTopic, v.blockedMessage()), nil
	}
	return types.Pass(text), nil
}

func keywordHit(lower string) (string, bool) {
	for category, phrases := range keywordStage {
		for _, phrase := range phrases {
			if strings.Contains(lower, phrase) {
				return category, true
			}
		}
	}
	return "", false
}

func hasOverride(lower string) bool {
	for _, w := range overrideWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// classify asks the LLM whether the text falls in a blocked topic. Any
// transport or parse failure returns true: the classifier degrades to
// allowing traffic rather than blocking it.
func (v *Validator) classify(ctx context.Context, text string) bool {
	if allowed, ok := v.cache.get(text); ok {
		return allowed
	}

	start := time.Now()
	reply, err := v.llm.Complete(ctx, v.classificationPrompt(text), llm.Options{
		Temperature: 0.1,
		MaxTokens:   10,
		Stop:        []string{"\n", ".", ","},
	})
	metrics.ClassifierDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		v.logger.WithFields(logrus.Fields{
			"validator": ValidatorName,
			"error":     err.Error(),
		}).Warn("topic classifier unavailable, allowing request")
		return true
	}

	allowed := strings.Contains(strings.ToUpper(strings.TrimSpace(reply)), "CONSENTITO")
	v.cache.put(text, allowed)

	v.logger.WithFields(logrus.Fields{
		"validator": ValidatorName,
		"allowed":   allowed,
	}).Info("topic classified")
	return allowed
}

func (v *Validator) classificationPrompt(text string) string {
	blocked := strings.Join(v.blockedTopics, ", ")
	return fmt.Sprintf(`Sei un classificatore di contenuti. Il tuo compito è determinare se una richiesta utente rientra in topic VIETATI.

TOPIC VIETATI: %s

REGOLE:
1. Se la richiesta chiede CONSIGLI PERSONALI su salute, medicina, investimenti, politica → VIETATO
2. Se la richiesta riguarda ANALISI DATI o QUERY DATABASE su qualsiasi argomento → CONSENTITO
3. Se è conversazione educata generale (saluti, ringraziamenti) → CONSENTITO
4. Se non sei sicuro → CONSENTITO (fail-safe)

ESEMPI:
- "Ho mal di testa, cosa prendo?" → VIETATO (consiglio medico)
- "Analizza i dati sui mal di testa nella popolazione" → CONSENTITO (analisi dati)
- "Per chi votare alle elezioni?" → VIETATO (consiglio politico)
- "Query sui risultati elettorali del database" → CONSENTITO (query database)
- "Conviene comprare Bitcoin?" → VIETATO (consiglio finanziario)
- "Mostra trend Bitcoin dal database" → CONSENTITO (analisi dati)

Rispondi SOLO con: CONSENTITO oppure VIETATO

RICHIESTA UTENTE: "%s"

CLASSIFICAZIONE:`, blocked, text)
}

func (v *Validator) blockedMessage() string {
	return fmt.Sprintf(
		"Sono un sistema AI per analytics di database. Non posso fornire %s. "+
			"Posso aiutarti con query database, analisi dati e programmazione.",
		strings.Join(v.blockedTopics, ", "),
	)
}
