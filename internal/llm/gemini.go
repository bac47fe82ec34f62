package llm

import (
	"context"
	"fmt"
	"io"
	"iter"
	"sync"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini calls the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini gateway for apiKey.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Generate(ctx context.Context, pc PromptContext) (string, error) {
	contents, cfg := toGenAI(pc)
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return resp.Text(), nil
}

func (g *Gemini) GenerateStream(ctx context.Context, pc PromptContext) (Stream, error) {
	contents, cfg := toGenAI(pc)
	seq := g.client.Models.GenerateContentStream(ctx, g.model, contents, cfg)
	next, stop := iter.Pull2(seq)
	return &geminiStream{next: next, stop: stop}, nil
}

// toGenAI maps a prompt context onto Gemini contents. Assistant turns use the
// "model" role; the system text travels as SystemInstruction.
func toGenAI(pc PromptContext) ([]*genai.Content, *genai.GenerateContentConfig) {
	contents := make([]*genai.Content, 0, len(pc.Turns))
	for _, t := range pc.Turns {
		role := genai.Role(genai.RoleUser)
		if t.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Content, role))
	}
	var cfg *genai.GenerateContentConfig
	if pc.System != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(pc.System, genai.RoleUser),
		}
	}
	return contents, cfg
}

type geminiStream struct {
	next func() (*genai.GenerateContentResponse, error, bool)
	stop func()
	once sync.Once
}

func (s *geminiStream) Recv() (string, error) {
	for {
		resp, err, ok := s.next()
		if !ok {
			return "", io.EOF
		}
		if err != nil {
			return "", fmt.Errorf("gemini stream: %w", err)
		}
		if resp == nil {
			continue
		}
		if txt := resp.Text(); txt != "" {
			return txt, nil
		}
	}
}

func (s *geminiStream) Close() error {
	s.once.Do(s.stop)
	return nil
}
