package core

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"multimind.ai/server/internal/identity"
	"multimind.ai/server/internal/store"
)

const profileLookupTimeout = 10 * time.Second

type FeedStore interface {
	ListPublishedImages(ctx context.Context, viewerID string) ([]store.FeedItem, error)
}

type ProfileDirectory interface {
	LookupProfiles(ctx context.Context, userIDs []string) (map[string]identity.Profile, error)
}

// FeedImage is one published image in the community feed.
type FeedImage struct {
	ID        int64            `json:"id"`
	ImageURL  string           `json:"imageUrl"`
	Prompt    string           `json:"prompt"`
	CreatedAt time.Time        `json:"createdAt"`
	IsLiked   bool             `json:"isLiked"`
	LikeCount int64            `json:"likeCount"`
	User      identity.Profile `json:"user"`
}

type FeedService struct {
	store     FeedStore
	directory ProfileDirectory
}

func NewFeedService(store FeedStore, directory ProfileDirectory) *FeedService {
	return &FeedService{store: store, directory: directory}
}

// PublishedImages lists the feed newest first. Owner profiles that cannot be
// resolved are reported as Anonymous without failing the response.
func (s *FeedService) PublishedImages(ctx context.Context, viewerID string) ([]FeedImage, error) {
	items, err := s.store.ListPublishedImages(ctx, viewerID)
	if err != nil {
		return nil, NewServiceError(err, http.StatusInternalServerError, "Failed to load published images")
	}

	owners := make([]string, len(items))
	for i, item := range items {
		owners[i] = item.UserID
	}

	lookupCtx, cancel := context.WithTimeout(ctx, profileLookupTimeout)
	profiles, err := s.directory.LookupProfiles(lookupCtx, owners)
	cancel()
	if err != nil {
		log.Warn().Err(err).Int("owners", len(owners)).Msg("Profile lookup failed, using placeholders")
	}

	images := make([]FeedImage, len(items))
	for i, item := range items {
		profile, ok := profiles[item.UserID]
		if !ok {
			profile = identity.AnonymousProfile(item.UserID)
		}
		images[i] = FeedImage{
			ID:        item.ID,
			ImageURL:  item.Content,
			Prompt:    item.Prompt,
			CreatedAt: item.CreatedAt,
			IsLiked:   item.Liked,
			LikeCount: item.LikeCount,
			User:      profile,
		}
	}
	return images, nil
}
