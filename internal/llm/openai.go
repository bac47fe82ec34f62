package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/schema"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAI calls an OpenAI-compatible chat completion endpoint. Setting a
// BaseURL points it at OpenRouter or a self-hosted server.
type OpenAI struct {
	model *openai.ChatModel
}

// NewOpenAI creates an OpenAI-compatible gateway.
func NewOpenAI(ctx context.Context, apiKey, model, baseURL string) (*OpenAI, error) {
	if model == "" {
		model = DefaultOpenAIModel
	}
	m, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: baseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create openai chat model: %w", err)
	}
	return &OpenAI{model: m}, nil
}

func (o *OpenAI) Generate(ctx context.Context, pc PromptContext) (string, error) {
	msg, err := o.model.Generate(ctx, toSchema(pc))
	if err != nil {
		return "", fmt.Errorf("openai generate: %w", err)
	}
	if msg == nil {
		return "", nil
	}
	return msg.Content, nil
}

func (o *OpenAI) GenerateStream(ctx context.Context, pc PromptContext) (Stream, error) {
	reader, err := o.model.Stream(ctx, toSchema(pc))
	if err != nil {
		return nil, fmt.Errorf("openai stream: %w", err)
	}
	if reader == nil {
		return nil, errors.New("openai stream: nil reader")
	}
	return &einoStream{reader: reader}, nil
}

func toSchema(pc PromptContext) []*schema.Message {
	out := make([]*schema.Message, 0, len(pc.Turns)+1)
	if pc.System != "" {
		out = append(out, schema.SystemMessage(pc.System))
	}
	for _, t := range pc.Turns {
		if t.Role == RoleAssistant {
			out = append(out, schema.AssistantMessage(t.Content, nil))
			continue
		}
		out = append(out, schema.UserMessage(t.Content))
	}
	return out
}

type einoStream struct {
	reader *schema.StreamReader[*schema.Message]
	once   sync.Once
}

func (s *einoStream) Recv() (string, error) {
	for {
		msg, err := s.reader.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", io.EOF
			}
			return "", fmt.Errorf("openai stream: %w", err)
		}
		if msg != nil && msg.Content != "" {
			return msg.Content, nil
		}
	}
}

func (s *einoStream) Close() error {
	s.once.Do(s.reader.Close)
	return nil
}
