package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// listUsersLimit is the largest page the list users endpoint serves.
const listUsersLimit = 100

var ErrUserNotFound = errors.New("user not found")

// User is the subset of the identity provider's user object this service reads.
type User struct {
	ID              string         `json:"id"`
	FirstName       string         `json:"first_name"`
	LastName        string         `json:"last_name"`
	Username        string         `json:"username"`
	ImageURL        string         `json:"image_url"`
	PrivateMetadata map[string]any `json:"private_metadata"`
}

// APIError is a non-2xx answer from the identity provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("identity provider returned %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// Client talks to the Clerk backend REST API.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

func NewClient(baseURL, secretKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		httpClient: httpClient,
	}
}

func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID), nil, &user); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	return &user, nil
}

// ListUsers fetches the given users in pages. Unknown ids are simply absent from the result.
func (c *Client) ListUsers(ctx context.Context, userIDs []string) ([]User, error) {
	var users []User
	for start := 0; start < len(userIDs); start += listUsersLimit {
		end := min(start+listUsersLimit, len(userIDs))

		q := url.Values{}
		for _, id := range userIDs[start:end] {
			q.Add("user_id", id)
		}
		q.Set("limit", strconv.Itoa(listUsersLimit))

		var page []User
		if err := c.do(ctx, http.MethodGet, "/users?"+q.Encode(), nil, &page); err != nil {
			return users, fmt.Errorf("failed to list users: %w", err)
		}
		users = append(users, page...)
	}
	return users, nil
}

// UpdatePrivateMetadata merges metadata into the user's private metadata.
func (c *Client) UpdatePrivateMetadata(ctx context.Context, userID string, metadata map[string]any) error {
	body := map[string]any{"private_metadata": metadata}
	if err := c.do(ctx, http.MethodPatch, "/users/"+url.PathEscape(userID)+"/metadata", body, nil); err != nil {
		return fmt.Errorf("failed to update metadata for user %s: %w", userID, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func errorMessage(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))

	var payload struct {
		Errors []struct {
			Message     string `json:"message"`
			LongMessage string `json:"long_message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && len(payload.Errors) > 0 {
		if payload.Errors[0].LongMessage != "" {
			return payload.Errors[0].LongMessage
		}
		return payload.Errors[0].Message
	}
	return strings.TrimSpace(string(data))
}
