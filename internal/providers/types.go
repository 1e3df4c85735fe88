package providers

import "context"

// Provider generates a single reply for a thread turn. Implementations wrap
// one LLM backend; the engine never sees wire formats.
type Provider interface {
	// Complete sends a system prompt and user content and returns the
	// assistant's reply text.
	Complete(ctx context.Context, system, user string) (string, error)

	// Name returns the provider identifier (e.g. "openai").
	Name() string
}
