package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/itish2003/guidedpath/models"
)

const (
	fallbackModelID = "fallback"
	fallbackAnswer  = "I apologize, but I'm currently unable to process your medical query. Please consult with your healthcare provider for medical advice."
)

// GenerationRequest is what a backend receives for one call.
type GenerationRequest struct {
	System   string
	Prompt   string
	Settings models.ProfileSettings
}

// Generation is a backend's raw output.
type Generation struct {
	Content    string
	TokensUsed int
}

// Backend executes a prompt against one model provider.
type Backend interface {
	Generate(ctx context.Context, req GenerationRequest) (Generation, error)
}

type profileBinding struct {
	backend  Backend
	settings models.ProfileSettings
}

// ModelGateway runs prompts on the backend bound to a routing profile and
// always returns a usable response.
type ModelGateway struct {
	profiles map[models.ModelProfile]profileBinding
	log      *slog.Logger
}

func NewModelGateway(logger *slog.Logger) *ModelGateway {
	return &ModelGateway{
		profiles: make(map[models.ModelProfile]profileBinding),
		log:      logger,
	}
}

// Register binds a profile to a backend. Registering twice replaces the binding.
func (g *ModelGateway) Register(profile models.ModelProfile, backend Backend, settings models.ProfileSettings) {
	g.profiles[profile] = profileBinding{backend: backend, settings: settings}
}

// Available lists the model ids of the registered profiles.
func (g *ModelGateway) Available() []string {
	out := []string{}
	for _, p := range models.Profiles {
		if b, ok := g.profiles[p]; ok {
			out = append(out, b.settings.Model)
		}
	}
	sort.Strings(out)
	return out
}

type generationResult struct {
	gen Generation
	err error
}

// Execute answers query from snippets with the profile's backend. Any
// failure, including a timeout or a panic inside the backend, yields the
// safety fallback response.
func (g *ModelGateway) Execute(ctx context.Context, query string, snippets []string, profile models.ModelProfile) models.ModelResponse {
	binding, ok := g.profiles[profile]
	if !ok || binding.backend == nil {
		g.log.Error("No backend registered for profile", slog.String("profile", string(profile)))
		return fallbackResponse()
	}

	if binding.settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, binding.settings.Timeout)
		defer cancel()
	}

	req := GenerationRequest{
		System:   medicalSystemPrompt,
		Prompt:   buildMedicalPrompt(query, snippets),
		Settings: binding.settings,
	}

	done := make(chan generationResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- generationResult{err: fmt.Errorf("backend panic: %v", r)}
			}
		}()
		gen, err := binding.backend.Generate(ctx, req)
		done <- generationResult{gen: gen, err: err}
	}()

	var res generationResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res = generationResult{err: ctx.Err()}
	}

	if res.err == nil && strings.TrimSpace(res.gen.Content) == "" {
		res.err = errors.New("backend returned an empty answer")
	}
	if res.err != nil {
		g.log.Error("Model call failed, using fallback answer",
			slog.String("profile", string(profile)),
			slog.String("model", binding.settings.Model),
			slog.Any("error", res.err))
		return fallbackResponse()
	}

	tokens := res.gen.TokensUsed
	return models.ModelResponse{
		Content:    res.gen.Content,
		ModelID:    binding.settings.Model,
		TokensUsed: tokens,
		Cost:       float64(tokens) / 1000 * binding.settings.CostPer1KTokens,
	}
}

func fallbackResponse() models.ModelResponse {
	return models.ModelResponse{
		Content:  fallbackAnswer,
		ModelID:  fallbackModelID,
		Degraded: true,
	}
}
