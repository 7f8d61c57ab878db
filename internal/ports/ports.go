// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// This package establishes the contract between the application core and
// external adapters (infrastructure). The pipeline layers depend only on
// these abstractions, which is what keeps the classifier and SQL generator
// testable with substitute gateways.
package ports

import (
	"context"
	"time"

	"github.com/doeshing/askdb-go/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.askdb/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// CompletionRequest carries one prompt to the language-model endpoint. Every
// call has its own deadline; callers never retry a failed completion.
type CompletionRequest struct {
	Messages    []domain.ChatMessage
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Completer sends a prompt to the remote completion endpoint and returns the
// raw assistant text. This single capability is shared by all three
// classification layers and by SQL generation.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Streamer relays a streaming completion, delivering content fragments in
// arrival order until the upstream finishes or the context is cancelled.
type Streamer interface {
	StreamChat(ctx context.Context, messages []domain.ChatMessage, maxTokens int, temperature float64, onDelta func(delta string)) error
}

// Classifier is the three-layer pipeline entry point.
type Classifier interface {
	Classify(ctx context.Context, query string) (bool, domain.RetrievalConfig, domain.ClassifierDebug)
}

// SQLGenerator turns one natural-language question into a validated
// statement pair. A returned error means no statement may be executed.
type SQLGenerator interface {
	Generate(ctx context.Context, query string, entities domain.Entities) (domain.GeneratedSQL, error)
}

// RowExecutor runs a validated SELECT statement against the embedded store.
// Statements reaching an implementation have already passed the safety
// validator.
type RowExecutor interface {
	Query(ctx context.Context, statement string) (domain.ResultSet, error)
	QueryScalar(ctx context.Context, statement string, column string) (int64, error)
}

// Logger provides structured logging abstraction for the application layer.
// Implementations can route to different backends (zap in production, no-op
// in tests).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
