// Package mods persists the modifications recorded against a vehicle.
package mods

import (
	"context"
	"time"

	"github.com/dmitrijs2005/buildbio/internal/server/models"
	"github.com/dmitrijs2005/buildbio/internal/server/ordering"
)

type Repository interface {
	// Create appends the mod at the end of the vehicle's list.
	Create(ctx context.Context, profileID, vehicleID string, in models.ModInput, installedOn *time.Time) (*models.Mod, error)
	ListByVehicle(ctx context.Context, vehicleID string) ([]models.Mod, error)
	Get(ctx context.Context, id string) (*models.Mod, error)
	Update(ctx context.Context, id string, in models.ModInput, installedOn *time.Time) (*models.Mod, error)
	Delete(ctx context.Context, id string) error

	ListPublicByVehicle(ctx context.Context, vehicleID string) ([]models.Mod, error)

	Siblings(profileID, vehicleID string) ordering.SiblingStore
}
