// Package images persists image rows. The objects themselves live in
// object storage under StoragePath.
package images

import (
	"context"

	"github.com/dmitrijs2005/buildbio/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, img *models.Image) (*models.Image, error)
	Get(ctx context.Context, id string) (*models.Image, error)
	UpdateCaption(ctx context.Context, id, caption string) (*models.Image, error)
	// Delete removes the row and returns it, so the caller can remove the object.
	Delete(ctx context.Context, id string) (*models.Image, error)
	// ListByVehicle lists images attached to the vehicle or to any of its mods.
	ListByVehicle(ctx context.Context, vehicleID string) ([]models.Image, error)

	ListPublicByVehicle(ctx context.Context, vehicleID string) ([]models.Image, error)
}
