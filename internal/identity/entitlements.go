package identity

import (
	"context"
	"math"
	"sync"

	"multimind.ai/server/internal/auth"
)

// FreeUsageKey is the private metadata field holding the free generation count.
const FreeUsageKey = "free_usage"

const PremiumPlan = "premium"

type userAccount interface {
	GetUser(ctx context.Context, userID string) (*User, error)
	UpdatePrivateMetadata(ctx context.Context, userID string, metadata map[string]any) error
}

// Entitlements reads plan membership from the session and usage from the
// identity provider's private metadata.
type Entitlements struct {
	users userAccount

	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func NewEntitlements(users userAccount) *Entitlements {
	return &Entitlements{users: users, locks: make(map[string]*userLock)}
}

func (e *Entitlements) IsPremium(_ context.Context, id auth.Identity) (bool, error) {
	return id.HasPlan(PremiumPlan), nil
}

func (e *Entitlements) GetUsage(ctx context.Context, userID string) (int, error) {
	user, err := e.users.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return FreeUsage(user.PrivateMetadata), nil
}

// IncrementUsage re-reads the counter before writing it back so overlapping
// generations each count. Writes are serialized per user within this process
// only; the metadata API has no compare-and-swap.
func (e *Entitlements) IncrementUsage(ctx context.Context, userID string) error {
	unlock := e.lock(userID)
	defer unlock()

	current, err := e.GetUsage(ctx, userID)
	if err != nil {
		return err
	}
	return e.users.UpdatePrivateMetadata(ctx, userID, map[string]any{FreeUsageKey: current + 1})
}

func (e *Entitlements) lock(userID string) func() {
	e.mu.Lock()
	l, ok := e.locks[userID]
	if !ok {
		l = &userLock{}
		e.locks[userID] = l
	}
	l.refs++
	e.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		e.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(e.locks, userID)
		}
		e.mu.Unlock()
	}
}

// FreeUsage returns the stored counter, treating missing or non-numeric values as 0.
func FreeUsage(metadata map[string]any) int {
	v, ok := metadata[FreeUsageKey].(float64)
	if !ok || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int(v)
}
