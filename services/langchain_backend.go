package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"google.golang.org/genai"

	"github.com/itish2003/guidedpath/config"
)

// LangChainBackend adapts any langchaingo model (OpenAI, Anthropic, Ollama).
type LangChainBackend struct {
	llm llms.Model
}

func NewLangChainBackend(llm llms.Model) *LangChainBackend {
	return &LangChainBackend{llm: llm}
}

func (b *LangChainBackend) Generate(ctx context.Context, req GenerationRequest) (Generation, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, req.System),
		llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt),
	}
	opts := []llms.CallOption{llms.WithTemperature(req.Settings.Temperature)}
	if req.Settings.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.Settings.MaxTokens))
	}

	resp, err := b.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return Generation{}, fmt.Errorf("llm call failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return Generation{}, fmt.Errorf("llm returned no choices")
	}
	choice := resp.Choices[0]
	return Generation{
		Content:    choice.Content,
		TokensUsed: tokensFromInfo(choice.GenerationInfo),
	}, nil
}

// tokensFromInfo reads usage from the provider specific generation info.
// OpenAI and Ollama report totals, Anthropic reports input and output.
func tokensFromInfo(info map[string]any) int {
	if info == nil {
		return 0
	}
	if total := intFromAny(info["TotalTokens"]); total > 0 {
		return total
	}
	if n := intFromAny(info["PromptTokens"]) + intFromAny(info["CompletionTokens"]); n > 0 {
		return n
	}
	return intFromAny(info["InputTokens"]) + intFromAny(info["OutputTokens"])
}

func intFromAny(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// NewBackend builds the backend a profile asks for.
func NewBackend(ctx context.Context, p *config.ProfileConfig) (Backend, error) {
	switch strings.ToLower(p.Backend) {
	case "openai":
		opts := []openai.Option{openai.WithModel(p.Model)}
		if key := p.APIKey(); key != "" {
			opts = append(opts, openai.WithToken(key))
		}
		if p.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(p.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("creating openai client: %w", err)
		}
		return NewLangChainBackend(llm), nil

	case "anthropic":
		opts := []anthropic.Option{anthropic.WithModel(p.Model)}
		if key := p.APIKey(); key != "" {
			opts = append(opts, anthropic.WithToken(key))
		}
		if p.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(p.BaseURL))
		}
		llm, err := anthropic.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("creating anthropic client: %w", err)
		}
		return NewLangChainBackend(llm), nil

	case "ollama":
		opts := []ollama.Option{ollama.WithModel(p.Model)}
		if p.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(p.BaseURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("creating ollama client: %w", err)
		}
		return NewLangChainBackend(llm), nil

	case "gemini":
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  p.APIKey(),
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("creating gemini client: %w", err)
		}
		return NewGeminiBackend(client), nil
	}
	return nil, fmt.Errorf("unknown backend %q", p.Backend)
}
