package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockUserLister struct {
	ListUsersFunc func(ctx context.Context, userIDs []string) ([]User, error)
}

func (m *mockUserLister) ListUsers(ctx context.Context, userIDs []string) ([]User, error) {
	return m.ListUsersFunc(ctx, userIDs)
}

type memoryCache struct {
	profiles map[string]Profile
	getErr   error
}

func (m *memoryCache) GetProfiles(_ context.Context, userIDs []string) (map[string]Profile, error) {
	out := make(map[string]Profile)
	if m.getErr != nil {
		return out, m.getErr
	}
	for _, id := range userIDs {
		if p, ok := m.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *memoryCache) SetProfiles(_ context.Context, profiles []Profile) error {
	for _, p := range profiles {
		m.profiles[p.ID] = p
	}
	return nil
}

func TestProfileFromUser(t *testing.T) {
	tests := []struct {
		name string
		user User
		want string
	}{
		{name: "full name", user: User{ID: "u", FirstName: "Ada", LastName: "Lovelace", Username: "ada"}, want: "Ada Lovelace"},
		{name: "first name only", user: User{ID: "u", FirstName: "Ada", Username: "ada"}, want: "ada"},
		{name: "username", user: User{ID: "u", Username: "ada"}, want: "ada"},
		{name: "nothing", user: User{ID: "u"}, want: AnonymousName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProfileFromUser(tt.user).Name)
		})
	}

	p := ProfileFromUser(User{ID: "u", ImageURL: "https://img/u.png"})
	require.NotNil(t, p.Avatar)
	assert.Equal(t, "https://img/u.png", *p.Avatar)
	assert.Nil(t, ProfileFromUser(User{ID: "u"}).Avatar)
}

func TestLookupProfiles_UsesCache(t *testing.T) {
	cache := &memoryCache{profiles: map[string]Profile{
		"user_1": {ID: "user_1", Name: "Cached One"},
	}}

	var requested []string
	users := &mockUserLister{
		ListUsersFunc: func(_ context.Context, ids []string) ([]User, error) {
			requested = ids
			return []User{{ID: "user_2", Username: "two"}}, nil
		},
	}

	dir := NewDirectory(users, cache)
	profiles, err := dir.LookupProfiles(context.Background(), []string{"user_1", "user_2", "user_1", ""})
	require.NoError(t, err)

	assert.Equal(t, []string{"user_2"}, requested)
	assert.Equal(t, "Cached One", profiles["user_1"].Name)
	assert.Equal(t, "two", profiles["user_2"].Name)
	assert.Contains(t, cache.profiles, "user_2")
}

func TestLookupProfiles_PartialFailure(t *testing.T) {
	cache := &memoryCache{profiles: map[string]Profile{}, getErr: errors.New("redis down")}
	users := &mockUserLister{
		ListUsersFunc: func(_ context.Context, ids []string) ([]User, error) {
			return []User{{ID: "user_1", Username: "one"}}, errors.New("second page failed")
		},
	}

	dir := NewDirectory(users, cache)
	profiles, err := dir.LookupProfiles(context.Background(), []string{"user_1", "user_2"})
	require.Error(t, err)

	assert.Equal(t, "one", profiles["user_1"].Name)
	assert.NotContains(t, profiles, "user_2")
}

func TestLookupProfiles_Empty(t *testing.T) {
	dir := NewDirectory(&mockUserLister{}, nil)

	profiles, err := dir.LookupProfiles(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, profiles)
}
