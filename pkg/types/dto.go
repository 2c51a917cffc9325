package types

import "time"

// QueryRequest is the body of POST /query and POST /chat.
type QueryRequest struct {
	Query      string `json:"query"`
	SessionID  string `json:"session_id,omitempty"`
	Collection string `json:"collection,omitempty"`
}

// QueryResponse is the body of a successful POST /query.
type QueryResponse struct {
	SessionID     string    `json:"session_id"`
	Result        string    `json:"result"`
	DataSaved     bool      `json:"data_saved"`
	FilePath      string    `json:"file_path,omitempty"`
	DocumentCount int       `json:"document_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// RejectionResponse is the 400 body returned when input validation blocks a
// request.
type RejectionResponse struct {
	Error         string   `json:"error"`
	Message       string   `json:"message"`
	ViolationType Category `json:"violation_type"`
}

// ConversationTurn is one stored turn of a thread, as exposed by the history
// endpoint.
type ConversationTurn struct {
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationsResponse is the body of GET /conversations.
type ConversationsResponse struct {
	ActiveThreads []string `json:"active_threads"`
	TotalCount    int      `json:"total_count"`
}

// GuardrailsStatusResponse is the body of GET /guardrails/status.
type GuardrailsStatusResponse struct {
	GuardrailsActive   bool     `json:"guardrails_active"`
	ProtectedEndpoints []string `json:"protected_endpoints"`
	InputValidators    []string `json:"input_validators"`
	OutputValidators   []string `json:"output_validators"`
}

// HistoryResponse is the body of GET /conversation/:thread_id/history.
type HistoryResponse struct {
	ThreadID            string             `json:"thread_id"`
	ConversationHistory []ConversationTurn `json:"conversation_history"`
}
