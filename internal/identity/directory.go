package identity

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

const AnonymousName = "Anonymous"

// Profile is the public face of an identity shown next to community content.
type Profile struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Avatar *string `json:"avatar"`
}

// ProfileFromUser derives the display name: "First Last" when both are set,
// else the username, else Anonymous.
func ProfileFromUser(u User) Profile {
	p := Profile{ID: u.ID, Name: AnonymousName}
	switch {
	case u.FirstName != "" && u.LastName != "":
		p.Name = u.FirstName + " " + u.LastName
	case u.Username != "":
		p.Name = u.Username
	}
	if u.ImageURL != "" {
		avatar := u.ImageURL
		p.Avatar = &avatar
	}
	return p
}

// AnonymousProfile stands in for an identity that could not be resolved.
func AnonymousProfile(userID string) Profile {
	return Profile{ID: userID, Name: AnonymousName}
}

type userLister interface {
	ListUsers(ctx context.Context, userIDs []string) ([]User, error)
}

type ProfileCache interface {
	GetProfiles(ctx context.Context, userIDs []string) (map[string]Profile, error)
	SetProfiles(ctx context.Context, profiles []Profile) error
}

// Directory resolves profiles in batches, consulting the cache first.
type Directory struct {
	users userLister
	cache ProfileCache
}

// NewDirectory builds a Directory; cache may be nil.
func NewDirectory(users userLister, cache ProfileCache) *Directory {
	return &Directory{users: users, cache: cache}
}

// LookupProfiles returns the profiles it could resolve. Ids missing from the
// result were unknown or failed; the error describes the first failure.
func (d *Directory) LookupProfiles(ctx context.Context, userIDs []string) (map[string]Profile, error) {
	ids := dedupe(userIDs)
	found := make(map[string]Profile, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	missing := ids
	if d.cache != nil {
		cached, err := d.cache.GetProfiles(ctx, ids)
		if err != nil {
			log.Warn().Err(err).Msg("Profile cache read failed")
		}
		missing = make([]string, 0, len(ids))
		for _, id := range ids {
			if p, ok := cached[id]; ok {
				found[id] = p
				continue
			}
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return found, nil
	}

	users, err := d.users.ListUsers(ctx, missing)
	fetched := make([]Profile, 0, len(users))
	for _, u := range users {
		p := ProfileFromUser(u)
		found[u.ID] = p
		fetched = append(fetched, p)
	}

	if d.cache != nil && len(fetched) > 0 {
		if cerr := d.cache.SetProfiles(ctx, fetched); cerr != nil {
			log.Warn().Err(cerr).Int("profiles", len(fetched)).Msg("Profile cache write failed")
		}
	}
	if err != nil {
		return found, fmt.Errorf("failed to resolve %d profiles: %w", len(missing), err)
	}
	return found, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
