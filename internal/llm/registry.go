package llm

import (
	"context"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
)

// Registry maps model-name prefixes to provider invokers. The dispatch table
// is built once at startup and passed explicitly to the stages that invoke
// models, so the set of available providers is test-injectable.
type Registry struct {
	mu       sync.RWMutex
	byPrefix map[string]Invoker
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{byPrefix: make(map[string]Invoker)}
}

// Register binds a model-name prefix (e.g. "claude", "gpt") to an invoker.
func (r *Registry) Register(prefix string, inv Invoker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byPrefix[strings.ToLower(prefix)] = inv
}

// Resolve returns the invoker for a model ID by longest matching prefix.
func (r *Registry) Resolve(modelID string) (Invoker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lower := strings.ToLower(modelID)
	var best string
	for prefix := range r.byPrefix {
		if strings.HasPrefix(lower, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return nil, eris.Errorf("llm: no provider registered for model %q", modelID)
	}
	return r.byPrefix[best], nil
}

// Invoke resolves the provider for modelID and dispatches the prompts.
func (r *Registry) Invoke(ctx context.Context, modelID, systemPrompt, userPrompt string) (string, error) {
	inv, err := r.Resolve(modelID)
	if err != nil {
		return "", err
	}
	return inv.Invoke(ctx, modelID, systemPrompt, userPrompt)
}

// Prefixes lists the registered provider prefixes.
func (r *Registry) Prefixes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	prefixes := make([]string, 0, len(r.byPrefix))
	for p := range r.byPrefix {
		prefixes = append(prefixes, p)
	}
	return prefixes
}
