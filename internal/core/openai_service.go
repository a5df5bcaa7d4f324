package core

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	defaultOpenAIModel      = "gpt-4o-mini"
	defaultOpenAIImageModel = "dall-e-3"
)

type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	ImageModel string
}

// OpenAIService generates text and images with an OpenAI compatible API.
type OpenAIService struct {
	client     openai.Client
	model      string
	imageModel string
}

func NewOpenAIService(cfg OpenAIConfig, opts ...option.RequestOption) *OpenAIService {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)

	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = defaultOpenAIImageModel
	}

	return &OpenAIService{
		client:     openai.NewClient(reqOpts...),
		model:      cfg.Model,
		imageModel: cfg.ImageModel,
	}
}

func (s *OpenAIService) GenerateText(ctx context.Context, prompt string, opts TextOptions) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
	}

	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai returned an empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}

func (s *OpenAIService) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	resp, err := s.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          openai.ImageModel(s.imageModel),
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
		Size:           openai.ImageGenerateParamsSize1024x1024,
	})
	if err != nil {
		return nil, fmt.Errorf("openai image request failed: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("openai returned no image data")
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode openai image: %w", err)
	}
	return data, nil
}
