package injection

import (
	"context"
	"fmt"
	"regexp"

	"github.com/sirupsen/logrus"

	"github.com/docgate-ai/docgate/pkg/types"
)

const ValidatorName = "injection_detection"

type AttackType string

const (
	SQL               AttackType = "sql"
	NoSQLInjection    AttackType = "nosql"
	CommandInjection  AttackType = "command"
	TemplateInjection AttackType = "template"
)

// The gateway turns user text into document-store filter expressions, so
// query-language and template payloads are the realistic attack surface.
var attackPatterns = map[AttackType]*regexp.Regexp{
	SQL: regexp.MustCompile(`(?i)(` +
		`['"]\s*OR\s*['"]?\s*\d+['"]?\s*=\s*['"]?\d+|` +
		`UNION\s+(?:ALL\s+)?SELECT\s+|` +
		`(?:SLEEP|BENCHMARK|WAITFOR\s+DELAY)\s*\(\s*\d+\s*\)|` +
		`['";]\s*;\s*(?:INSERT|UPDATE|DELETE|DROP|ALTER|CREATE|TRUNCATE)\s|` +
		`\b(?:DROP|DELETE|TRUNCATE)\s+(?:TABLE|DATABASE|SCHEMA)\s+\w+` +
		`)`),

	NoSQLInjection: regexp.MustCompile(`(?i)(` +
		`"\$(?:where|regex|exists|gt|lt|ne|nin|elemMatch|all|size|function)"\s*:|` +
		`\$(?:where|regex|exists|ne|nin)\s*[:=]|` +
		`function\s*\(\s*\)\s*\{` +
		`)`),

	CommandInjection: regexp.MustCompile(`(?i)(` +
		`\|\s*(?:cmd|sh|bash|powershell)|` +
		`[;&|]\s*(?:ls|cat|wget|curl|nc|netcat)\b|` +
		`system\s*\(|exec\s*\(|shell_exec\s*\(|` +
		`echo\s+[A-Za-z0-9+/=]+\s*\|\s*base64\s*-d` +
		`)`),

	TemplateInjection: regexp.MustCompile(`(?i)(` +
		`\{\{.*?\}\}|` +
		`__proto__|constructor\s*\[|prototype\s*\[|` +
		`<%.*?%>` +
		`)`),
}

var defaultAttackTypes = []AttackType{SQL, NoSQLInjection, CommandInjection, TemplateInjection}

type Validator struct {
	logger  *logrus.Logger
	attacks []AttackType
}

func NewValidator(logger *logrus.Logger, attacks ...AttackType) *Validator {
	if len(attacks) == 0 {
		attacks = defaultAttackTypes
	}
	return &Validator{logger: logger, attacks: attacks}
}

func (v *Validator) Name() string {
	return ValidatorName
}

func (v *Validator) Category() types.Category {
	return types.CategoryInjection
}

func (v *Validator) Check(ctx context.Context, text string, metadata map[string]interface{}) (types.Verdict, error) {
	for _, attack := range v.attacks {
		pattern, ok := attackPatterns[attack]
		if !ok {
			continue
		}
		if pattern.MatchString(text) {
			v.logger.WithFields(logrus.Fields{
				"validator":   ValidatorName,
				"attack_type": attack,
			}).Warn("injection attempt detected")
			return types.Fail(
				types.CategoryInjection,
				fmt.Sprintf("potential %s injection detected", attack),
			), nil
		}
	}
	return types.Pass(text), nil
}
