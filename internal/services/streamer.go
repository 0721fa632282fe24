package services

import (
	"context"
	"fmt"

	"supportchat/internal/config"
	"supportchat/internal/persona"
	"supportchat/internal/relay"
)

// TextStreamer opens a single-turn streaming generation for prompt.
// The returned iterator yields text fragments in the order the model
// produced them and iterator.Done once the model has finished.
type TextStreamer interface {
	StreamText(ctx context.Context, prompt string) (relay.FragmentIterator, error)
}

// ModelService is a TextStreamer that owns an upstream client.
type ModelService interface {
	TextStreamer
	Close() error
}

// New builds the model service selected by cfg.ModelProvider.
func New(ctx context.Context, cfg *config.Config, p *persona.Persona) (ModelService, error) {
	switch cfg.ModelProvider {
	case config.ProviderVertex:
		return NewVertexService(ctx, cfg, p)
	case config.ProviderGemini:
		return NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.ModelName, p)
	case config.ProviderOpenAI:
		return NewOpenAIService(cfg.OpenAIAPIKey, cfg.ModelName, p), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.ModelProvider)
	}
}
