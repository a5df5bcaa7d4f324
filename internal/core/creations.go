package core

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"multimind.ai/server/internal/store"
	"multimind.ai/server/internal/utils"
)

type UserCreationStore interface {
	ListUserCreations(ctx context.Context, userID string) ([]store.Creation, error)
}

// UserCreation is a creation in the owner's history, optionally rendered to HTML.
type UserCreation struct {
	store.Creation
	HTML string `json:"html,omitempty"`
}

type CreationService struct {
	store UserCreationStore
}

func NewCreationService(store UserCreationStore) *CreationService {
	return &CreationService{store: store}
}

func (s *CreationService) ListForUser(ctx context.Context, userID string, renderHTML bool) ([]UserCreation, error) {
	creations, err := s.store.ListUserCreations(ctx, userID)
	if err != nil {
		return nil, NewServiceError(err, http.StatusInternalServerError, "Failed to load creations")
	}

	out := make([]UserCreation, len(creations))
	for i, c := range creations {
		out[i] = UserCreation{Creation: c}
		if !renderHTML || c.Type == store.TypeImage {
			continue
		}
		html, err := utils.RenderMarkdown(c.Content)
		if err != nil {
			log.Warn().Err(err).Int64("creation_id", c.ID).Msg("Failed to render creation markdown")
			continue
		}
		out[i].HTML = html
	}
	return out, nil
}
