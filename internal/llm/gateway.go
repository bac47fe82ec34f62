// Package llm is the boundary to external text-generation providers. The rest
// of the service talks to a Gateway and never to a provider SDK directly.
//
// Adapters:
//   - gemini:   Google Gemini via google.golang.org/genai
//   - openai:   any OpenAI-compatible endpoint (OpenAI, OpenRouter) via eino
//   - scripted: deterministic replies for tests and offline development
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Turn roles understood by every adapter.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one prior conversation message handed to the model.
type Turn struct {
	Role    string
	Content string
}

// PromptContext is the complete, bounded input of a single generation: a
// system instruction followed by ordered turns, the last of which is the
// message being answered.
type PromptContext struct {
	System string
	Turns  []Turn
}

// Gateway generates text for a prompt context.
type Gateway interface {
	// Generate returns the whole reply at once.
	Generate(ctx context.Context, pc PromptContext) (string, error)
	// GenerateStream returns incremental fragments of the reply.
	GenerateStream(ctx context.Context, pc PromptContext) (Stream, error)
}

// Stream yields reply fragments. Recv returns io.EOF after the last fragment.
// Close releases the underlying connection and may be called more than once.
type Stream interface {
	Recv() (string, error)
	Close() error
}

var (
	// ErrUnknownProvider is returned by New for an unsupported provider name.
	ErrUnknownProvider = errors.New("llm: unknown provider")
	// ErrMissingAPIKey is returned by New when a remote provider has no key.
	ErrMissingAPIKey = errors.New("llm: api key is required")
)

// Provider names accepted by New.
const (
	ProviderGemini   = "gemini"
	ProviderOpenAI   = "openai"
	ProviderScripted = "scripted"
)

// Config selects and configures an adapter.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	// BaseURL overrides the OpenAI-compatible endpoint (e.g. OpenRouter).
	BaseURL string
}

// New builds the Gateway named by cfg.Provider.
func New(ctx context.Context, cfg Config) (Gateway, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w (provider %s)", ErrMissingAPIKey, ProviderGemini)
		}
		return NewGemini(ctx, cfg.APIKey, cfg.Model)
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w (provider %s)", ErrMissingAPIKey, ProviderOpenAI)
		}
		return NewOpenAI(ctx, cfg.APIKey, cfg.Model, cfg.BaseURL)
	case ProviderScripted, "":
		return &Scripted{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// LastUserTurn returns the content of the final user turn, or "".
func (pc PromptContext) LastUserTurn() string {
	for i := len(pc.Turns) - 1; i >= 0; i-- {
		if pc.Turns[i].Role == RoleUser {
			return pc.Turns[i].Content
		}
	}
	return ""
}
