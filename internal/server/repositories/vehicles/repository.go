// Package vehicles persists vehicles, the first level below a profile.
package vehicles

import (
	"context"

	"github.com/dmitrijs2005/buildbio/internal/server/models"
	"github.com/dmitrijs2005/buildbio/internal/server/ordering"
)

type Repository interface {
	// Create appends the vehicle at the end of the owner's list.
	Create(ctx context.Context, profileID string, in models.VehicleInput) (*models.Vehicle, error)
	ListByProfile(ctx context.Context, profileID string) ([]models.Vehicle, error)
	Get(ctx context.Context, id string) (*models.Vehicle, error)
	Update(ctx context.Context, id string, in models.VehicleInput) (*models.Vehicle, error)
	Delete(ctx context.Context, id string) error
	// SetHeroImage stores path (nil clears it) and returns the previous one.
	SetHeroImage(ctx context.Context, id string, path *string) (*string, error)
	SetPublic(ctx context.Context, id string, public bool) (*models.Vehicle, error)

	ListPublicByProfile(ctx context.Context, profileID string) ([]models.Vehicle, error)
	GetPublic(ctx context.Context, profileID, id string) (*models.Vehicle, error)

	// Siblings returns the reorder scope of profileID's vehicles.
	Siblings(profileID string) ordering.SiblingStore
}
