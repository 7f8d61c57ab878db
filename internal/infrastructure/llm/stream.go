package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/doeshing/askdb-go/internal/domain"
	"github.com/doeshing/askdb-go/internal/ports"
)

var _ ports.Streamer = (*Client)(nil)

// StreamChat runs a streaming completion and invokes onDelta per content
// fragment, in arrival order, until the upstream sends its [DONE] marker,
// the stream ends, or the context is cancelled. Cancellation returns
// ctx.Err(); any partial content already delivered stands.
func (c *Client) StreamChat(ctx context.Context, messages []domain.ChatMessage, maxTokens int, temperature float64, onDelta func(delta string)) error {
	payload := chatCompletionRequest{
		Model:       c.modelID,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Stream:      true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")
	c.setAuthHeader(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &UpstreamError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return processStream(ctx, resp.Body, onDelta)
}

func processStream(ctx context.Context, body io.Reader, onDelta func(string)) error {
	reader := NewSSEReader(body)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		data, err := reader.ReadEvent()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if bytes.Equal(data, []byte("[DONE]")) {
			return nil
		}

		var chunk streamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			// skip malformed frames
			continue
		}
		if content := chunk.content(); content != "" {
			onDelta(content)
		}
	}
}

// SSEReader parses server-sent-event frames from a stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader wraps an io.Reader in an SSE frame parser.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{reader: bufio.NewReader(r)}
}

// ReadEvent returns the data payload of the next event. Event-type lines,
// comments and retry hints are ignored; io.EOF signals the end of stream.
func (s *SSEReader) ReadEvent() ([]byte, error) {
	var dataLines [][]byte

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				if len(dataLines) > 0 {
					return bytes.Join(dataLines, []byte("\n")), nil
				}
				return nil, io.EOF
			}
			return nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// empty line ends the current event
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		if bytes.HasPrefix(line, []byte("data:")) {
			dataLines = append(dataLines, bytes.TrimSpace(line[5:]))
		}
	}
}
