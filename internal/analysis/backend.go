// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analysis

import (
	"context"
	"fmt"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// Backend generates text for a prompt with the named model. Implementations
// talk to a local inference server.
type Backend interface {
	Generate(ctx context.Context, model types.ModelID, prompt string) (string, error)
}

// NewBackend selects the backend implementation for cfg.Provider. An empty
// provider means Ollama.
func NewBackend(ctx context.Context, cfg types.LLMConfig) (Backend, error) {
	switch cfg.Provider {
	case types.ProviderOllama, "":
		return NewOllamaBackend(cfg), nil
	case types.ProviderOpenAI:
		return NewOpenAICompatible(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown llm provider %q (want %s or %s)", cfg.Provider, types.ProviderOllama, types.ProviderOpenAI)
}
