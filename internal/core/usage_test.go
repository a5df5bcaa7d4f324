package core

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multimind.ai/server/internal/identity"
)

// memoryAccounts keeps private metadata in memory for the identity adapter.
type memoryAccounts struct {
	mu    sync.Mutex
	usage map[string]int
}

func (m *memoryAccounts) GetUser(_ context.Context, userID string) (*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &identity.User{
		ID:              userID,
		PrivateMetadata: map[string]any{identity.FreeUsageKey: float64(m.usage[userID])},
	}, nil
}

func (m *memoryAccounts) UpdatePrivateMetadata(_ context.Context, userID string, metadata map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage[userID] = metadata[identity.FreeUsageKey].(int)
	return nil
}

func TestGateway_OverlappingFreeGenerationsEachCount(t *testing.T) {
	f := newGatewayFixture(t)
	accounts := &memoryAccounts{usage: map[string]int{"user_free": 5}}
	f.gateway.ledger = NewUsageLedger(identity.NewEntitlements(accounts))

	// Both requests are gated on the same stale count and finish together.
	var started sync.WaitGroup
	started.Add(2)
	release := make(chan struct{})
	f.text.GenerateTextFunc = func(context.Context, string, TextOptions) (string, error) {
		started.Done()
		<-release
		return "generated text", nil
	}

	caller := freeCaller(5)
	errs := make(chan error, 2)
	for range 2 {
		go func() {
			_, err := f.gateway.GenerateArticle(context.Background(), caller, ArticleRequest{Prompt: "Go"})
			errs <- err
		}()
	}
	started.Wait()
	close(release)

	for range 2 {
		require.NoError(t, <-errs)
	}
	assert.Len(t, f.store.created, 2)
	assert.Equal(t, 7, accounts.usage["user_free"])
}
