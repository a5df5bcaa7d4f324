package core

import (
	"context"
	"net/http"

	"multimind.ai/server/internal/auth"
)

type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

// Entitlement is the caller's plan and, for free callers, consumed free generations.
type Entitlement struct {
	Plan      Plan
	FreeUsage int
}

func (e Entitlement) Premium() bool {
	return e.Plan == PlanPremium
}

// EntitlementStore is the identity provider capability behind plans and usage.
type EntitlementStore interface {
	IsPremium(ctx context.Context, id auth.Identity) (bool, error)
	GetUsage(ctx context.Context, userID string) (int, error)
	IncrementUsage(ctx context.Context, userID string) error
}

// Caller is an authenticated identity with its resolved entitlement.
type Caller struct {
	Identity    auth.Identity
	Entitlement Entitlement
}

func (c Caller) UserID() string {
	return c.Identity.UserID
}

type EntitlementResolver struct {
	store EntitlementStore
}

func NewEntitlementResolver(store EntitlementStore) *EntitlementResolver {
	return &EntitlementResolver{store: store}
}

// Resolve fails when the identity provider cannot be reached; there is no fallback to free.
func (r *EntitlementResolver) Resolve(ctx context.Context, id auth.Identity) (Entitlement, error) {
	premium, err := r.store.IsPremium(ctx, id)
	if err != nil {
		return Entitlement{}, NewServiceError(err, http.StatusInternalServerError, "Failed to resolve plan")
	}
	if premium {
		return Entitlement{Plan: PlanPremium}, nil
	}

	usage, err := r.store.GetUsage(ctx, id.UserID)
	if err != nil {
		return Entitlement{}, NewServiceError(err, http.StatusInternalServerError, "Failed to resolve usage")
	}
	return Entitlement{Plan: PlanFree, FreeUsage: max(usage, 0)}, nil
}
