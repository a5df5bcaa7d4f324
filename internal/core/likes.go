package core

import (
	"context"
	"errors"
	"net/http"

	"multimind.ai/server/internal/store"
)

type LikeStore interface {
	ToggleLike(ctx context.Context, creationID int64, userID string) (store.LikeState, error)
}

type LikeService struct {
	store LikeStore
}

func NewLikeService(store LikeStore) *LikeService {
	return &LikeService{store: store}
}

// Toggle flips userID's like on the creation and returns the resulting state.
func (s *LikeService) Toggle(ctx context.Context, userID string, creationID int64) (store.LikeState, error) {
	if creationID <= 0 {
		return store.LikeState{}, NewServiceError(nil, http.StatusBadRequest, "creationId is required.")
	}

	state, err := s.store.ToggleLike(ctx, creationID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return store.LikeState{}, NewServiceError(err, http.StatusNotFound, "Creation not found")
	}
	if err != nil {
		return store.LikeState{}, NewServiceError(err, http.StatusInternalServerError, "Failed to toggle like")
	}
	return state, nil
}
