package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Evaluate(t *testing.T) {
	policy, err := NewPolicy(context.Background(), 10)
	require.NoError(t, err)

	free := func(usage int) Entitlement { return Entitlement{Plan: PlanFree, FreeUsage: usage} }
	premium := Entitlement{Plan: PlanPremium}

	tests := []struct {
		name   string
		kind   Kind
		ent    Entitlement
		allow  bool
		reason string
	}{
		{"free article under quota", KindArticle, free(0), true, ""},
		{"free article last slot", KindBlogTitle, free(9), true, ""},
		{"free article at quota", KindArticle, free(10), false, MsgFreeLimitExceeded},
		{"free blog title over quota", KindBlogTitle, free(42), false, MsgFreeLimitExceeded},
		{"premium article ignores usage", KindArticle, Entitlement{Plan: PlanPremium, FreeUsage: 99}, true, ""},
		{"free image", KindImage, free(0), false, MsgUpgradeRequired},
		{"free background removal", KindBackgroundRemoval, free(0), false, MsgUpgradeRequired},
		{"free object removal", KindObjectRemoval, free(0), false, MsgUpgradeRequired},
		{"free resume review", KindResumeReview, free(0), false, MsgUpgradeRequired},
		{"premium image", KindImage, premium, true, ""},
		{"premium resume review", KindResumeReview, premium, true, ""},
		{"unknown kind", Kind("video"), premium, false, "Unsupported generation kind."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := policy.Evaluate(context.Background(), tt.kind, tt.ent)
			require.NoError(t, err)
			assert.Equal(t, tt.allow, decision.Allow)
			assert.Equal(t, tt.reason, decision.Reason)
		})
	}
}

func TestPolicy_CustomLimit(t *testing.T) {
	policy, err := NewPolicy(context.Background(), 3)
	require.NoError(t, err)

	decision, err := policy.Evaluate(context.Background(), KindArticle, Entitlement{Plan: PlanFree, FreeUsage: 3})
	require.NoError(t, err)
	assert.False(t, decision.Allow)
}
