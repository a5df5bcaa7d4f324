package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"
)

// CreateCreation persists c and fills in its ID and CreatedAt. Articles go to
// the articles table, every other type to creations.
func (s *Store) CreateCreation(ctx context.Context, c *Creation) error {
	if c.Content == "" {
		return errors.New("creation content must not be empty")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	if c.Type == TypeArticle {
		c.Publish = false
		query := s.rebind(`INSERT INTO articles (user_id, prompt, content, type, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id`)
		if err := s.db.QueryRowContext(ctx, query, c.UserID, c.Prompt, c.Content, c.Type, c.CreatedAt).Scan(&c.ID); err != nil {
			return fmt.Errorf("failed to insert article: %w", err)
		}
		return nil
	}

	query := s.rebind(`INSERT INTO creations (user_id, prompt, content, type, publish, like_count, created_at) VALUES (?, ?, ?, ?, ?, 0, ?) RETURNING id`)
	if err := s.db.QueryRowContext(ctx, query, c.UserID, c.Prompt, c.Content, c.Type, c.Publish, c.CreatedAt).Scan(&c.ID); err != nil {
		return fmt.Errorf("failed to insert creation: %w", err)
	}
	c.LikeCount = 0
	return nil
}

// GetCreation returns nil, nil when the creation does not exist.
func (s *Store) GetCreation(ctx context.Context, id int64) (*Creation, error) {
	query := s.rebind(`SELECT id, user_id, prompt, content, type, publish, like_count, created_at FROM creations WHERE id = ?`)
	c, err := scanCreation(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get creation %d: %w", id, err)
	}
	return c, nil
}

// ListPublishedImages returns published images newest first. Liked reports
// whether viewerID has liked each image; an empty viewer never has.
func (s *Store) ListPublishedImages(ctx context.Context, viewerID string) ([]FeedItem, error) {
	query := s.rebind(`
		SELECT c.id, c.user_id, c.prompt, c.content, c.type, c.publish, c.like_count, c.created_at,
			EXISTS (SELECT 1 FROM likes l WHERE l.creation_id = c.id AND l.user_id = ?) AS liked
		FROM creations c
		WHERE c.publish = ? AND c.type = ?
		ORDER BY c.created_at DESC, c.id DESC`)

	rows, err := s.db.QueryContext(ctx, query, viewerID, true, TypeImage)
	if err != nil {
		return nil, fmt.Errorf("failed to query published images: %w", err)
	}
	defer rows.Close()

	var items []FeedItem
	for rows.Next() {
		var it FeedItem
		if err := rows.Scan(&it.ID, &it.UserID, &it.Prompt, &it.Content, &it.Type, &it.Publish,
			&it.LikeCount, &it.CreatedAt, &it.Liked); err != nil {
			return nil, fmt.Errorf("failed to scan published image: %w", err)
		}
		it.CreatedAt = it.CreatedAt.UTC()
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating published images: %w", err)
	}
	return items, nil
}

// ListUserCreations merges the user's articles and creations, newest first.
func (s *Store) ListUserCreations(ctx context.Context, userID string) ([]Creation, error) {
	creations, err := s.queryCreations(ctx,
		`SELECT id, user_id, prompt, content, type, publish, like_count, created_at FROM creations WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query creations for user %s: %w", userID, err)
	}

	articles, err := s.queryArticles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles for user %s: %w", userID, err)
	}

	all := append(creations, articles...)
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	return all, nil
}

func (s *Store) queryCreations(ctx context.Context, query string, args ...any) ([]Creation, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creations []Creation
	for rows.Next() {
		c, err := scanCreation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan creation: %w", err)
		}
		creations = append(creations, *c)
	}
	return creations, rows.Err()
}

func (s *Store) queryArticles(ctx context.Context, userID string) ([]Creation, error) {
	query := s.rebind(`SELECT id, user_id, prompt, content, type, created_at FROM articles WHERE user_id = ?`)
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []Creation
	for rows.Next() {
		var a Creation
		if err := rows.Scan(&a.ID, &a.UserID, &a.Prompt, &a.Content, &a.Type, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		a.CreatedAt = a.CreatedAt.UTC()
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCreation(row rowScanner) (*Creation, error) {
	var c Creation
	if err := row.Scan(&c.ID, &c.UserID, &c.Prompt, &c.Content, &c.Type, &c.Publish, &c.LikeCount, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}
