// Package llm implements the language-model gateway: one HTTP client for the
// OpenAI-compatible chat-completions endpoint, shared by every pipeline
// layer and by answer generation.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/doeshing/askdb-go/internal/domain"
	"github.com/doeshing/askdb-go/internal/ports"
)

// ErrTimeout marks a completion that did not answer within its deadline.
// Callers treat it exactly like any other gateway failure.
var ErrTimeout = errors.New("llm: completion timed out")

// UpstreamError reports a non-2xx reply or a malformed envelope from the
// completion endpoint.
type UpstreamError struct {
	StatusCode int
	Status     string
	Reason     string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("llm: upstream %s", e.Status)
	}
	return fmt.Sprintf("llm: upstream %s", e.Reason)
}

// Client talks to a single chat-completions endpoint. It holds only
// read-only configuration and is safe for concurrent use.
type Client struct {
	endpoint   string
	modelID    string
	authEnvVar string
	httpClient *http.Client
}

// NewClient builds a gateway for the configured endpoint. The http.Client
// carries no global timeout; each call sets its own deadline through the
// request context.
func NewClient(cfg domain.LLMSettings) *Client {
	return &Client{
		endpoint:   cfg.Endpoint,
		modelID:    cfg.ModelID,
		authEnvVar: cfg.AuthEnvVar,
		httpClient: &http.Client{},
	}
}

// Complete implements ports.Completer.
func (c *Client) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	payload := chatCompletionRequest{
		Model:       c.modelID,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.setAuthHeader(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &UpstreamError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var decoded chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", &UpstreamError{Reason: fmt.Sprintf("malformed envelope: %v", err)}
	}
	content, ok := decoded.FirstMessage()
	if !ok {
		return "", &UpstreamError{Reason: "empty choices"}
	}
	return content, nil
}

func (c *Client) setAuthHeader(req *http.Request) {
	if c.authEnvVar == "" {
		return
	}
	if key := os.Getenv(c.authEnvVar); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
}

var _ ports.Completer = (*Client)(nil)
