// Package media talks to the image generation and image hosting vendors.
package media

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Image is an in-memory image payload.
type Image struct {
	Data        []byte
	ContentType string
	Filename    string
}

// ProviderError is a non-2xx answer from a media vendor.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Provider, e.StatusCode, e.Message)
}

func (e *ProviderError) HTTPStatus() int {
	return e.StatusCode
}

func newProviderError(provider string, resp *http.Response) *ProviderError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &ProviderError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(data)),
	}
}
