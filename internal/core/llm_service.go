package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiService generates text with the Gemini API.
type GeminiService struct {
	client    *genai.Client
	modelName string
}

func NewGeminiService(ctx context.Context, apiKey, modelName string) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	if modelName == "" {
		modelName = defaultGeminiModel
	}

	return &GeminiService{
		client:    client,
		modelName: modelName,
	}, nil
}

func (s *GeminiService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing GenAI client")
		} else {
			log.Info().Msg("GenAI client closed")
		}
	}
}

func (s *GeminiService) GenerateText(ctx context.Context, prompt string, opts TextOptions) (string, error) {
	model := s.client.GenerativeModel(s.modelName)

	temp := float32(0.7)
	model.GenerationConfig = genai.GenerationConfig{
		Temperature: &temp,
	}
	if opts.MaxTokens > 0 {
		model.GenerationConfig.MaxOutputTokens = &opts.MaxTokens
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generation request failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		} else {
			log.Debug().Str("part_type", fmt.Sprintf("%T", part)).Msg("Skipping non-text Gemini part")
		}
	}

	if text.Len() == 0 {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return text.String(), nil
}
