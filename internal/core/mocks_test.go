package core

import (
	"context"
	"sync"

	"multimind.ai/server/internal/auth"
	"multimind.ai/server/internal/identity"
	"multimind.ai/server/internal/media"
	"multimind.ai/server/internal/store"
)

type mockEntitlementStore struct {
	IsPremiumFunc      func(ctx context.Context, id auth.Identity) (bool, error)
	GetUsageFunc       func(ctx context.Context, userID string) (int, error)
	IncrementUsageFunc func(ctx context.Context, userID string) error

	mu         sync.Mutex
	increments []string
}

func (m *mockEntitlementStore) IsPremium(ctx context.Context, id auth.Identity) (bool, error) {
	if m.IsPremiumFunc != nil {
		return m.IsPremiumFunc(ctx, id)
	}
	return false, nil
}

func (m *mockEntitlementStore) GetUsage(ctx context.Context, userID string) (int, error) {
	if m.GetUsageFunc != nil {
		return m.GetUsageFunc(ctx, userID)
	}
	return 0, nil
}

func (m *mockEntitlementStore) IncrementUsage(ctx context.Context, userID string) error {
	m.mu.Lock()
	m.increments = append(m.increments, userID)
	m.mu.Unlock()
	if m.IncrementUsageFunc != nil {
		return m.IncrementUsageFunc(ctx, userID)
	}
	return nil
}

type mockCreationStore struct {
	CreateCreationFunc func(ctx context.Context, c *store.Creation) error

	mu      sync.Mutex
	created []store.Creation
}

func (m *mockCreationStore) CreateCreation(ctx context.Context, c *store.Creation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateCreationFunc != nil {
		if err := m.CreateCreationFunc(ctx, c); err != nil {
			return err
		}
	}
	c.ID = int64(len(m.created) + 1)
	m.created = append(m.created, *c)
	return nil
}

type mockText struct {
	GenerateTextFunc func(ctx context.Context, prompt string, opts TextOptions) (string, error)

	mu      sync.Mutex
	prompts []string
	opts    []TextOptions
}

func (m *mockText) GenerateText(ctx context.Context, prompt string, opts TextOptions) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.opts = append(m.opts, opts)
	m.mu.Unlock()
	if m.GenerateTextFunc != nil {
		return m.GenerateTextFunc(ctx, prompt, opts)
	}
	return "generated text", nil
}

type mockImages struct {
	GenerateImageFunc func(ctx context.Context, prompt string) ([]byte, error)
}

func (m *mockImages) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	if m.GenerateImageFunc != nil {
		return m.GenerateImageFunc(ctx, prompt)
	}
	return []byte("\x89PNG"), nil
}

type mockHost struct {
	HostFunc             func(ctx context.Context, img media.Image) (string, error)
	RemoveBackgroundFunc func(ctx context.Context, img media.Image) (string, error)
	RemoveObjectFunc     func(ctx context.Context, img media.Image, object string) (string, error)
}

func (m *mockHost) Host(ctx context.Context, img media.Image) (string, error) {
	if m.HostFunc != nil {
		return m.HostFunc(ctx, img)
	}
	return "https://cdn/hosted.png", nil
}

func (m *mockHost) RemoveBackground(ctx context.Context, img media.Image) (string, error) {
	if m.RemoveBackgroundFunc != nil {
		return m.RemoveBackgroundFunc(ctx, img)
	}
	return "https://cdn/nobg.png", nil
}

func (m *mockHost) RemoveObject(ctx context.Context, img media.Image, object string) (string, error) {
	if m.RemoveObjectFunc != nil {
		return m.RemoveObjectFunc(ctx, img, object)
	}
	return "https://cdn/noobject.png", nil
}

type mockFeedStore struct {
	items []store.FeedItem
	err   error
}

func (m *mockFeedStore) ListPublishedImages(_ context.Context, _ string) ([]store.FeedItem, error) {
	return m.items, m.err
}

type mockDirectory struct {
	profiles map[string]identity.Profile
	err      error
}

func (m *mockDirectory) LookupProfiles(_ context.Context, _ []string) (map[string]identity.Profile, error) {
	return m.profiles, m.err
}

type mockLikeStore struct {
	ToggleLikeFunc func(ctx context.Context, creationID int64, userID string) (store.LikeState, error)
}

func (m *mockLikeStore) ToggleLike(ctx context.Context, creationID int64, userID string) (store.LikeState, error) {
	return m.ToggleLikeFunc(ctx, creationID, userID)
}

type mockUserCreationStore struct {
	creations []store.Creation
	err       error
}

func (m *mockUserCreationStore) ListUserCreations(_ context.Context, _ string) ([]store.Creation, error) {
	return m.creations, m.err
}
