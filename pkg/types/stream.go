package types

// StreamEventType tags the SSE frames of the chat streaming endpoint.
type StreamEventType string

const (
	StreamConnection StreamEventType = "connection"
	StreamStart      StreamEventType = "start"
	StreamContent    StreamEventType = "content"
	StreamComplete   StreamEventType = "complete"
	StreamError      StreamEventType = "error"
	StreamDone       StreamEventType = "done"
)

// StreamEvent is the JSON payload of one SSE frame. Fields are populated
// per event type: content frames carry a chunk, the complete frame carries
// the assembled text and chunk count.
type StreamEvent struct {
	Type         StreamEventType `json:"type"`
	ThreadID     string          `json:"thread_id,omitempty"`
	Chunk        string          `json:"chunk,omitempty"`
	FinalContent string          `json:"final_content,omitempty"`
	TotalChunks  int             `json:"total_chunks,omitempty"`
	Error        string          `json:"error,omitempty"`
}
