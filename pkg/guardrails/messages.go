package guardrails

import "github.com/docgate-ai/docgate/pkg/types"

// User-facing violation messages, keyed by category. Rejection bodies must
// never carry validator internals or matched text.
var violationMessages = map[types.Category]string{
	types.CategoryToxic:     "Non posso elaborare contenuti inappropriati. Ti prego di riformulare.",
	types.CategoryProfanity: "Linguaggio inappropriato rimosso dalla richiesta.",
	types.CategoryPII:       "Dati personali rilevati. Richiesta bloccata per sicurezza.",
	types.CategoryTopic:     "Sono un sistema AI per database analytics. Non posso fornire consigli personali.",
	types.CategoryInjection: "Richiesta bloccata: rilevato un tentativo di manipolazione della query.",
	types.CategoryFormat:    "La risposta generata non è in un formato valido.",
}

const defaultViolationMessage = "Validazione fallita. Riprova con contenuto diverso."

// MessageFor returns the safe, static message for a violation category.
func MessageFor(category types.Category) string {
	if msg, ok := violationMessages[category]; ok {
		return msg
	}
	return defaultViolationMessage
}
