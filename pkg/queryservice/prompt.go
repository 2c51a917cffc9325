package queryservice

import (
	"fmt"
	"sort"
	"strings"

	"github.com/docgate-ai/docgate/pkg/conversation"
)

// The prompt makes the model choose between a conversational reply and a
// bare JSON filter expression. Few-shot examples pin both modes; the schema
// is rendered as a field list so the model targets real fields.
const promptTemplate = `Sei un assistente AI per l'analisi di documenti che può aiutare con conversazioni e query sui dati.

RUOLO E IDENTITÀ:
- Tu sei l'ASSISTENTE AI
- L'utente è la PERSONA che ti sta parlando
- NON confondere mai i ruoli

COMPORTAMENTO:
1. **CONVERSAZIONE NORMALE**: Rispondi come assistente amichevole
2. **QUERY SUI DATI**: Genera SOLO JSON per richieste esplicite di ricerca dati

ESEMPI QUERY (genera JSON quando richiesto):
- "Cerca utenti età maggiore di 25" → {"eta": {"$gt": 25}}
- "Trova documenti con città Roma" → {"citta": "Roma"}
- "Tutti i documenti" → {}

RICORDA:
- Mantieni sempre la tua identità di assistente
- Ricorda informazioni che l'utente condivide su se stesso
- Per le query genera SOLO il JSON, senza testo aggiuntivo

Schema disponibile: %s

Conversazione:
%s

Utente: %s

Assistente:`

func buildPrompt(schema map[string]string, history []conversation.Turn, input string) string {
	return fmt.Sprintf(promptTemplate, renderSchema(schema), renderHistory(history), input)
}

func renderSchema(schema map[string]string) string {
	if len(schema) == 0 {
		return "Schema non disponibile"
	}
	fields := make([]string, 0, len(schema))
	for field := range schema {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var b strings.Builder
	b.WriteString("Campi disponibili:\n")
	for _, field := range fields {
		fmt.Fprintf(&b, "- %s (%s)\n", field, schema[field])
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderHistory(history []conversation.Turn) string {
	if len(history) == 0 {
		return "(nessuna conversazione precedente)"
	}
	var b strings.Builder
	for _, turn := range history {
		prefix := "Utente"
		if turn.Role == conversation.RoleAI {
			prefix = "Assistente"
		}
		fmt.Fprintf(&b, "%s: %s\n", prefix, turn.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

// stripCodeFences removes markdown code block markers the model sometimes
// wraps JSON in.
func stripCodeFences(reply string) string {
	if !strings.Contains(reply, "```") {
		return strings.TrimSpace(reply)
	}
	var kept []string
	for _, line := range strings.Split(reply, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// looksLikeFilter reports whether a cleaned reply is a candidate JSON filter
// expression rather than conversational text.
func looksLikeFilter(cleaned string) bool {
	return strings.HasPrefix(cleaned, "{") && strings.HasSuffix(cleaned, "}")
}
