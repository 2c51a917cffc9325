package pii

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/docgate-ai/docgate/pkg/types"
)

const ValidatorName = "pii_detection"

type entity struct {
	label   string
	pattern *regexp.Regexp
}

// Locale-specific PII patterns: Italian fiscal code and IBAN alongside the
// generic email/phone/card formats. Order fixes the order of labels in the
// failure message.
var entities = []entity{
	{
		label:   "codice fiscale",
		pattern: regexp.MustCompile(`\b[A-Z]{6}[0-9]{2}[A-Z][0-9]{2}[A-Z][0-9]{3}[A-Z]\b`),
	},
	{
		label:   "email",
		pattern: regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
	},
	{
		label: "telefono",
		pattern: regexp.MustCompile(`\b(?:\+39|0039)?[\s\-]?3[0-9]{2}[\s\-]?[0-9]{6,7}\b|` +
			`\b(?:\+39|0039)?[\s\-]?0[0-9]{2,3}[\s\-]?[0-9]{6,8}\b`),
	},
	{
		label:   "carta di credito",
		pattern: regexp.MustCompile(`\b(?:[0-9]{4}[\s\-]?){3}[0-9]{4}\b`),
	},
	{
		label: "IBAN",
		pattern: regexp.MustCompile(`\bIT[0-9]{2}[\s]?[A-Z][0-9]{3}[\s]?[0-9]{4}[\s]?` +
			`[0-9]{4}[\s]?[0-9]{4}[\s]?[0-9]{3}\b`),
	},
}

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
	return types.CategoryPII
}

// Check evaluates every pattern unconditionally so the failure message can
// enumerate all matched categories. The message carries category labels
// only; matched text must never reach error messages or logs.
func (v *Validator) Check(ctx context.Context, text string, metadata map[string]interface{}) (types.Verdict, error) {
	var detected []string
	for _, e := range entities {
		if e.pattern.MatchString(text) {
			detected = append(detected, e.label)
		}
	}

	if len(detected) == 0 {
		return types.Pass(text), nil
	}

	v.logger.WithFields(logrus.Fields{
		"validator":  ValidatorName,
		"categories": detected,
	}).Info("PII detected")

	reason := fmt.Sprintf(
		"Rilevati dati personali sensibili: %s. Per motivi di sicurezza e privacy, "+
			"non posso elaborare informazioni personali identificabili.",
		strings.Join(detected, ", "),
	)
	return types.Fail(types.CategoryPII, reason), nil
}
