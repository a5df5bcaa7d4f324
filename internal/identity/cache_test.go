//go:build integration

package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	cont, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cont.Terminate(ctx) })

	host, err := cont.Host(ctx)
	require.NoError(t, err)

	port, err := cont.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return host + ":" + port.Port()
}

func TestRedisCache(t *testing.T) {
	cache := NewRedisCache(RedisConfig{Addr: startRedis(t), TTL: time.Second})
	defer cache.Close()

	ctx := context.Background()
	require.NoError(t, cache.Ping(ctx))

	avatar := "https://img/one.png"
	require.NoError(t, cache.SetProfiles(ctx, []Profile{
		{ID: "user_1", Name: "One", Avatar: &avatar},
		{ID: "user_2", Name: "Two"},
	}))

	profiles, err := cache.GetProfiles(ctx, []string{"user_1", "user_2", "user_3"})
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "One", profiles["user_1"].Name)
	require.NotNil(t, profiles["user_1"].Avatar)
	assert.Nil(t, profiles["user_2"].Avatar)

	time.Sleep(2 * time.Second)

	profiles, err = cache.GetProfiles(ctx, []string{"user_1"})
	require.NoError(t, err)
	assert.Empty(t, profiles)
}
