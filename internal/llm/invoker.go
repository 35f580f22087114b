package llm

import "context"

// Invoker is the uniform "call a model, get raw text back" contract. Provider
// wrappers (Anthropic, OpenAI-compatible) implement it; retry and backoff
// policy for a given provider lives behind this interface, not in front of it.
type Invoker interface {
	// Invoke sends the prompts to the named model and returns its raw text
	// output verbatim.
	Invoke(ctx context.Context, modelID, systemPrompt, userPrompt string) (string, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, modelID, systemPrompt, userPrompt string) (string, error)

func (f InvokerFunc) Invoke(ctx context.Context, modelID, systemPrompt, userPrompt string) (string, error) {
	return f(ctx, modelID, systemPrompt, userPrompt)
}
