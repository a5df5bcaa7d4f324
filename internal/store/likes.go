package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ToggleLike flips userID's like on a creation and applies the matching delta
// to like_count in the same transaction. It returns ErrNotFound for an unknown creation.
func (s *Store) ToggleLike(ctx context.Context, creationID int64, userID string) (LikeState, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return LikeState{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Rollback is a no-op if the transaction has been committed

	var id int64
	err = tx.QueryRowContext(ctx, s.rebind(`SELECT id FROM creations WHERE id = ?`+s.rowLock()), creationID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return LikeState{}, ErrNotFound
	}
	if err != nil {
		return LikeState{}, fmt.Errorf("failed to lock creation %d: %w", creationID, err)
	}

	res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM likes WHERE creation_id = ? AND user_id = ?`), creationID, userID)
	if err != nil {
		return LikeState{}, fmt.Errorf("failed to delete like: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return LikeState{}, fmt.Errorf("failed to read deleted likes: %w", err)
	}

	state := LikeState{CreationID: creationID}
	delta := 0
	if removed > 0 {
		delta = -1
	} else {
		res, err = tx.ExecContext(ctx,
			s.rebind(`INSERT INTO likes (creation_id, user_id, created_at) VALUES (?, ?, ?) ON CONFLICT (creation_id, user_id) DO NOTHING`),
			creationID, userID, time.Now().UTC())
		if err != nil {
			return LikeState{}, fmt.Errorf("failed to insert like: %w", err)
		}
		added, err := res.RowsAffected()
		if err != nil {
			return LikeState{}, fmt.Errorf("failed to read inserted likes: %w", err)
		}
		if added > 0 {
			delta = 1
		}
		state.Liked = true
	}

	err = tx.QueryRowContext(ctx, s.rebind(`UPDATE creations SET like_count = like_count + ? WHERE id = ? RETURNING like_count`),
		delta, creationID).Scan(&state.LikeCount)
	if err != nil {
		return LikeState{}, fmt.Errorf("failed to update like count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return LikeState{}, fmt.Errorf("failed to commit like toggle: %w", err)
	}
	return state, nil
}

// ReconcileLikeCounts recomputes like_count from the likes table wherever the
// two disagree and returns the number of creations it repaired.
func (s *Store) ReconcileLikeCounts(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE creations
		SET like_count = (SELECT COUNT(*) FROM likes WHERE likes.creation_id = creations.id)
		WHERE like_count <> (SELECT COUNT(*) FROM likes WHERE likes.creation_id = creations.id)`)
	if err != nil {
		return 0, fmt.Errorf("failed to reconcile like counts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read reconciled rows: %w", err)
	}
	return n, nil
}
