// Package agent implements the agentic conversation loop and the provider
// contract it consumes.
//
// The loop only sees canonical types from pkg/models; provider adapters in
// internal/providers map those to their wire formats. Streaming responses are
// delivered as a channel of StreamChunk values that must be drained to
// completion before the next iteration starts.
package agent

import (
	"context"

	"github.com/caretforge/caretforge/pkg/models"
)

// ChatOptions carries per-request parameters for a chat completion.
type ChatOptions struct {
	// Model is the model or deployment identifier.
	Model string

	// Stream requests a streaming completion.
	Stream bool

	// Temperature is the sampling temperature; zero means provider default.
	Temperature float32

	// MaxTokens caps the response length; zero means provider default.
	MaxTokens int

	// Tools is the complete tool-definition set. It is always sent whole:
	// permission gating happens after the model chooses, never by withholding
	// tools, so denials surface as normal tool results the model can react to.
	Tools []models.ToolDefinition
}

// ChatResponse is a complete, non-streaming chat completion.
type ChatResponse struct {
	Message      models.Message
	Usage        *models.Usage
	FinishReason string
}

// Provider is the uniform contract over the supported LLM backends.
//
// Implementations must be safe for concurrent use; each streaming call owns
// an independent goroutine and channel. Providers own their HTTP clients but
// hold no long-lived connections beyond single request lifetimes.
type Provider interface {
	// Name returns the stable provider identifier used for routing and logging.
	Name() string

	// SupportsTools reports whether client-side tool calling is available.
	SupportsTools() bool

	// ListModels returns the models this provider can serve.
	ListModels(ctx context.Context) ([]models.ModelInfo, error)

	// CreateChatCompletion performs a non-streaming completion.
	CreateChatCompletion(ctx context.Context, messages []models.Message, opts ChatOptions) (*ChatResponse, error)

	// CreateStreamingChatCompletion performs a streaming completion. The
	// returned channel is closed when the stream ends; a chunk with a non-nil
	// Err terminates the stream.
	CreateStreamingChatCompletion(ctx context.Context, messages []models.Message, opts ChatOptions) (<-chan *models.StreamChunk, error)
}
