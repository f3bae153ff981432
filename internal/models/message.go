package models

// Message roles understood by the generators.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResult is the outcome of one pipeline run.
type ChatResult struct {
	RunID   string         `json:"run_id,omitempty"`
	Reply   string         `json:"reply"`
	Sources []string       `json:"sources"`
	Meta    map[string]any `json:"meta"`
}

// LastUserContent returns the content of the last user message, or "".
func LastUserContent(msgs []Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}
