package services

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// contentGenerator is the slice of *genai.Models the backend uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiBackend calls Google Gemini through the genai SDK.
type GeminiBackend struct {
	models contentGenerator
}

func NewGeminiBackend(client *genai.Client) *GeminiBackend {
	return &GeminiBackend{models: client.Models}
}

func (b *GeminiBackend) Generate(ctx context.Context, req GenerationRequest) (Generation, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: GetSystemPrompt(),
		Temperature:       genai.Ptr(float32(req.Settings.Temperature)),
	}
	if req.Settings.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.Settings.MaxTokens)
	}

	result, err := b.models.GenerateContent(ctx, req.Settings.Model, genai.Text(req.Prompt), config)
	if err != nil {
		return Generation{}, fmt.Errorf("gemini api call failed: %w", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return Generation{}, fmt.Errorf("gemini returned no candidates")
	}

	var responseText strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		if p.Text != "" {
			responseText.WriteString(p.Text)
		}
	}

	gen := Generation{Content: responseText.String()}
	if result.UsageMetadata != nil {
		gen.TokensUsed = int(result.UsageMetadata.TotalTokenCount)
	}
	return gen, nil
}
