package domain

// ChatMessage follows the role/content pair required by chat-completion APIs.
type ChatMessage struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// ChatRequest captures one inbound chat turn from the transport layer. The
// last user message is the question fed to the classification pipeline;
// earlier messages are relayed to the model untouched.
type ChatRequest struct {
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	UseRAG      *bool         `json:"use_rag,omitempty"`
	TopK        int           `json:"top_k,omitempty"`
	RequestID   string        `json:"request_id,omitempty"`
}

// LastUserContent returns the content of the final message, or "" when the
// request carries none.
func (r ChatRequest) LastUserContent() string {
	if len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[len(r.Messages)-1].Content
}

// ChatResponse is the non-streaming reply envelope.
type ChatResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}
