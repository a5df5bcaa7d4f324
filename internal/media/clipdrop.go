package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// maxGeneratedImage bounds the PNG we accept back from the generator.
const maxGeneratedImage = 20 << 20

// Clipdrop generates images from text prompts.
type Clipdrop struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClipdrop(baseURL, apiKey string, httpClient *http.Client) *Clipdrop {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 90 * time.Second}
	}
	return &Clipdrop{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// GenerateImage returns the PNG bytes rendered for prompt.
func (c *Clipdrop) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("prompt", prompt); err != nil {
		return nil, fmt.Errorf("failed to write prompt field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/text-to-image/v1", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build clipdrop request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("clipdrop request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newProviderError("clipdrop", resp)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxGeneratedImage))
	if err != nil {
		return nil, fmt.Errorf("failed to read clipdrop image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("clipdrop returned an empty image")
	}
	return data, nil
}
