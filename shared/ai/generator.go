package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Generator sends a text prompt to the remote inference service and returns
// its free-text answer.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

var (
	// ErrNotConfigured means no remote credentials were provided
	ErrNotConfigured = errors.New("remote inference not configured")
	// ErrRateLimited marks quota or rate-limit rejections from the service
	ErrRateLimited = errors.New("remote inference rate limited")
	// ErrEmptyResponse means the service answered without any text
	ErrEmptyResponse = errors.New("empty response from remote inference")
)

// GeminiGenerator talks to Gemini through the genai SDK
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a client for the given API key. An empty key
// returns ErrNotConfigured so callers can switch to fallback-only operation.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiGenerator{
		client: client,
		model:  model,
	}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
	}

	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		if IsRateLimited(err) {
			return "", fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := result.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

var rateLimitSignals = []string{
	"429",
	"resource_exhausted",
	"quota",
	"rate limit",
	"ratelimit",
	"too many requests",
}

// IsRateLimited classifies an error as a quota or rate-limit rejection
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, signal := range rateLimitSignals {
		if strings.Contains(msg, signal) {
			return true
		}
	}
	return false
}
