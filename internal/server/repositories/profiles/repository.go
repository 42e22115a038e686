// Package profiles persists profiles, the roots of the ownership tree.
package profiles

import (
	"context"

	"github.com/dmitrijs2005/buildbio/internal/server/models"
)

type Repository interface {
	// Provision creates the profile for id if it does not exist yet.
	Provision(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.Profile, error)
	Update(ctx context.Context, id string, upd models.ProfileUpdate) (*models.Profile, error)
	// SetAvatar stores path (nil clears it) and returns the previous path.
	SetAvatar(ctx context.Context, id string, path *string) (*string, error)
	Delete(ctx context.Context, id string) error
	// ObjectPaths lists every storage path referenced by the profile's tree.
	ObjectPaths(ctx context.Context, id string) ([]string, error)

	// GetPublicByUsername reads the public projection.
	GetPublicByUsername(ctx context.Context, username string) (*models.Profile, error)
}
