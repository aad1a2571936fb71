// Package chat relays completion requests to an upstream AI provider,
// charging the caller's wallet before any provider work happens.
package chat

import (
	"context"
	"errors"
)

var (
	// ErrProviderUnavailable means no upstream provider is configured.
	ErrProviderUnavailable = errors.New("ai provider not configured")
	// ErrWalletRequired means the deployment demands a wallet on every
	// chat request and none was supplied.
	ErrWalletRequired = errors.New("wallet_address is required")
)

// Message is a single turn in a conversation.
type Message struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// Request is a completion request in provider-neutral form.
type Request struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Usage reports provider-side token accounting for a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is a fully buffered provider response.
type Completion struct {
	Content string
	Model   string
	Usage   Usage
}

// Fragment is one unit of a streamed completion. Exactly one of Content or
// Err is set; a terminal Err ends the stream.
type Fragment struct {
	Content string
	Err     error
}

// Provider generates completions. Stream returns a channel that is closed
// when the completion finishes or fails; implementations must stop sending
// when ctx is cancelled.
type Provider interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
	Stream(ctx context.Context, req Request) (<-chan Fragment, error)
}
