package store

import (
	"errors"
	"time"
)

// Persisted creation types. Background and object removal results are stored as TypeImage.
const (
	TypeArticle      = "article"
	TypeBlogTitle    = "blog-title"
	TypeImage        = "image"
	TypeResumeReview = "resume-review"
)

var ErrNotFound = errors.New("not found")

// Creation is one completed generation event. Articles live in their own table
// and always report Publish false and LikeCount 0.
type Creation struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Prompt    string    `json:"prompt"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	Publish   bool      `json:"publish"`
	LikeCount int64     `json:"like_count"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedItem is a published creation as seen by a particular viewer.
type FeedItem struct {
	Creation
	Liked bool `json:"liked"`
}

type LikeState struct {
	CreationID int64 `json:"creation_id"`
	Liked      bool  `json:"liked"`
	LikeCount  int64 `json:"like_count"`
}
