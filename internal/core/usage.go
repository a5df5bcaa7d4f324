package core

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const usageUpdateTimeout = 10 * time.Second

// UsageLedger records free generations against the identity provider.
type UsageLedger struct {
	store EntitlementStore
}

func NewUsageLedger(store EntitlementStore) *UsageLedger {
	return &UsageLedger{store: store}
}

// Record bumps the free usage counter once. It is best effort: the creation is
// already stored, so a failure is logged and the caller keeps its result.
func (l *UsageLedger) Record(ctx context.Context, caller Caller) {
	if caller.Entitlement.Premium() {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), usageUpdateTimeout)
	defer cancel()

	if err := l.store.IncrementUsage(ctx, caller.UserID()); err != nil {
		log.Error().Err(err).
			Str("user_id", caller.UserID()).
			Int("free_usage", caller.Entitlement.FreeUsage).
			Msg("Failed to record free usage")
	}
}
