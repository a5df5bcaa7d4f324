package core

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multimind.ai/server/internal/identity"
	"multimind.ai/server/internal/store"
)

func TestPublishedImages_AnonymousFallback(t *testing.T) {
	now := time.Now().UTC()
	avatar := "https://img/ada.png"
	feed := NewFeedService(
		&mockFeedStore{items: []store.FeedItem{
			{Creation: store.Creation{ID: 2, UserID: "user_ada", Prompt: "fox", Content: "https://cdn/fox.png", LikeCount: 3, CreatedAt: now}, Liked: true},
			{Creation: store.Creation{ID: 1, UserID: "user_gone", Prompt: "owl", Content: "https://cdn/owl.png", CreatedAt: now.Add(-time.Minute)}},
		}},
		&mockDirectory{
			profiles: map[string]identity.Profile{"user_ada": {ID: "user_ada", Name: "Ada Lovelace", Avatar: &avatar}},
			err:      errors.New("partial lookup failure"),
		},
	)

	images, err := feed.PublishedImages(context.Background(), "viewer")
	require.NoError(t, err)
	require.Len(t, images, 2)

	assert.Equal(t, int64(2), images[0].ID)
	assert.Equal(t, "https://cdn/fox.png", images[0].ImageURL)
	assert.True(t, images[0].IsLiked)
	assert.Equal(t, int64(3), images[0].LikeCount)
	assert.Equal(t, "Ada Lovelace", images[0].User.Name)

	assert.Equal(t, identity.AnonymousName, images[1].User.Name)
	assert.Equal(t, "user_gone", images[1].User.ID)
	assert.Nil(t, images[1].User.Avatar)
}

func TestPublishedImages_StoreFailure(t *testing.T) {
	feed := NewFeedService(&mockFeedStore{err: errors.New("db down")}, &mockDirectory{})

	_, err := feed.PublishedImages(context.Background(), "")
	var se *ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
}

func TestLikeService_Toggle(t *testing.T) {
	likes := NewLikeService(&mockLikeStore{
		ToggleLikeFunc: func(_ context.Context, creationID int64, userID string) (store.LikeState, error) {
			if creationID == 404 {
				return store.LikeState{}, store.ErrNotFound
			}
			return store.LikeState{CreationID: creationID, Liked: true, LikeCount: 1}, nil
		},
	})
	ctx := context.Background()

	state, err := likes.Toggle(ctx, "user_1", 7)
	require.NoError(t, err)
	assert.True(t, state.Liked)
	assert.Equal(t, int64(1), state.LikeCount)

	_, err = likes.Toggle(ctx, "user_1", 404)
	requireServiceError(t, err, http.StatusNotFound, "Creation not found")

	_, err = likes.Toggle(ctx, "user_1", 0)
	requireServiceError(t, err, http.StatusBadRequest, "creationId is required.")
}

func TestCreationService_ListForUser(t *testing.T) {
	svc := NewCreationService(&mockUserCreationStore{creations: []store.Creation{
		{ID: 2, Type: store.TypeImage, Content: "https://cdn/fox.png"},
		{ID: 1, Type: store.TypeArticle, Content: "# Title\n\nBody"},
	}})

	plain, err := svc.ListForUser(context.Background(), "user_1", false)
	require.NoError(t, err)
	require.Len(t, plain, 2)
	assert.Empty(t, plain[1].HTML)

	rendered, err := svc.ListForUser(context.Background(), "user_1", true)
	require.NoError(t, err)
	assert.Empty(t, rendered[0].HTML)
	assert.Contains(t, rendered[1].HTML, "<h1>Title</h1>")
}
