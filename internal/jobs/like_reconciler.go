// Package jobs runs scheduled maintenance in the background.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const reconcileTimeout = 5 * time.Minute

type LikeCountReconciler interface {
	ReconcileLikeCounts(ctx context.Context) (int64, error)
}

// LikeReconciler periodically re-derives like_count from the likes table.
type LikeReconciler struct {
	store    LikeCountReconciler
	schedule string
	cron     *cron.Cron
}

func NewLikeReconciler(store LikeCountReconciler, schedule string) *LikeReconciler {
	return &LikeReconciler{
		store:    store,
		schedule: schedule,
		cron:     cron.New(),
	}
}

// Start registers the job and starts the scheduler.
func (r *LikeReconciler) Start() error {
	if _, err := r.cron.AddFunc(r.schedule, r.runScheduled); err != nil {
		return fmt.Errorf("invalid like reconcile schedule %q: %w", r.schedule, err)
	}
	r.cron.Start()
	log.Info().Str("schedule", r.schedule).Msg("Like count reconciler started")
	return nil
}

// Stop halts the scheduler and waits for a running job until ctx is done.
func (r *LikeReconciler) Stop(ctx context.Context) {
	select {
	case <-r.cron.Stop().Done():
		log.Info().Msg("Like count reconciler stopped")
	case <-ctx.Done():
		log.Warn().Msg("Like count reconciler did not stop in time")
	}
}

func (r *LikeReconciler) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()
	_, _ = r.RunOnce(ctx)
}

// RunOnce reconciles all counts and returns how many creations drifted.
func (r *LikeReconciler) RunOnce(ctx context.Context) (int64, error) {
	start := time.Now()
	fixed, err := r.store.ReconcileLikeCounts(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Like count reconciliation failed")
		return 0, err
	}

	if fixed > 0 {
		log.Warn().Int64("repaired", fixed).Dur("took", time.Since(start)).Msg("Repaired drifted like counts")
	} else {
		log.Debug().Dur("took", time.Since(start)).Msg("Like counts consistent")
	}
	return fixed, nil
}
