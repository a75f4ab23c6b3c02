// Package provider abstracts the LLM backends used to voice simulated
// clients and grade sessions. Callers hand over prompts and get text
// back; everything model-specific stays behind the Provider interface.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Message is one turn of a chat-shaped prompt.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// Request is a completion request to any provider.
type Request struct {
	System      string
	Messages    []Message
	Temperature float64
	MaxTokens   int64
}

// Provider generates a text completion for a request.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// Retry constants shared by all providers.
const (
	maxRetries     = 3
	initialBackoff = 1 * time.Second
	backoffMult    = 2
	maxBackoff     = 10 * time.Second
)

// RetryableError marks a completion failure worth retrying: throttled
// or transient API errors, or an empty completion. Anything else
// aborts the retry loop immediately.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }

func (e *RetryableError) Unwrap() error { return e.Err }

func retryable(err error) error {
	return &RetryableError{Err: err}
}

// WithRetry executes fn with exponential backoff on RetryableError.
func WithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	backoff := initialBackoff

	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		var re *RetryableError
		if !errors.As(err, &re) {
			return err
		}
		lastErr = err

		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= time.Duration(backoffMult)
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}

	return lastErr
}

// New creates a provider by model name.
func New(name string) (Provider, error) {
	switch name {
	case "haiku", "sonnet":
		return NewClaude(name), nil
	case "nova-lite":
		return NewNova(name)
	case "mock":
		return NewMock(nil), nil
	default:
		return nil, fmt.Errorf("unknown provider %q: choose haiku, sonnet, nova-lite, or mock", name)
	}
}
