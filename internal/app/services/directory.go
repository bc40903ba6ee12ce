package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/mrniikke/fitness-challange/internal/app/repositories"
)

// Directory resolves display names for notifications
type Directory interface {
	UserName(ctx context.Context, userID uuid.UUID) (string, error)
	GroupName(ctx context.Context, groupID uuid.UUID) (string, error)
}

type storeDirectory struct {
	profiles repositories.ProfileStore
	groups   repositories.GroupStore
}

// NewDirectory creates a Directory backed by the profile and group stores
func NewDirectory(profiles repositories.ProfileStore, groups repositories.GroupStore) Directory {
	return &storeDirectory{profiles: profiles, groups: groups}
}

func (d *storeDirectory) UserName(ctx context.Context, userID uuid.UUID) (string, error) {
	p, err := d.profiles.GetProfile(ctx, userID)
	if err != nil {
		return "", err
	}
	return p.Name(), nil
}

func (d *storeDirectory) GroupName(ctx context.Context, groupID uuid.UUID) (string, error) {
	g, err := d.groups.GetGroup(ctx, groupID)
	if err != nil {
		return "", err
	}
	return g.Name, nil
}
