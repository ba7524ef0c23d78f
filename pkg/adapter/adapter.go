package adapter

import "context"

// Adapter defines the interface for chat-completion providers. The
// orchestrator's fallback function and the LLM-delegated routers are
// the consumers.
type Adapter interface {
	// Generate sends a prompt to the model and returns the completion.
	Generate(ctx context.Context, model string, prompt string) (*Response, error)

	// Name returns the adapter's identifier.
	Name() string

	// Models returns the list of supported models.
	Models() []string
}
