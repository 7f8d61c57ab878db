package llm

import (
	"strings"

	"github.com/doeshing/askdb-go/internal/domain"
)

type chatCompletionRequest struct {
	Model       string               `json:"model"`
	Messages    []domain.ChatMessage `json:"messages"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
	Temperature float64              `json:"temperature,omitempty"`
	Stream      bool                 `json:"stream,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message domain.ChatMessage `json:"message"`
	} `json:"choices"`
}

func (c chatCompletionResponse) FirstMessage() (string, bool) {
	if len(c.Choices) == 0 {
		return "", false
	}
	return strings.TrimSpace(c.Choices[0].Message.Content), true
}

// streamChunk is one SSE frame of a streaming completion. Some backends put
// incremental text in delta.content, others in a bare text field.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		Text         string  `json:"text"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

func (c streamChunk) content() string {
	if len(c.Choices) == 0 {
		return ""
	}
	if c.Choices[0].Delta.Content != "" {
		return c.Choices[0].Delta.Content
	}
	return c.Choices[0].Text
}
