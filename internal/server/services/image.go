package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/buildbio/internal/common"
	"github.com/dmitrijs2005/buildbio/internal/dbx"
	"github.com/dmitrijs2005/buildbio/internal/logging"
	"github.com/dmitrijs2005/buildbio/internal/server/authz"
	"github.com/dmitrijs2005/buildbio/internal/server/models"
	"github.com/dmitrijs2005/buildbio/internal/server/repositories/repomanager"
)

type ImageService struct {
	session
}

func NewImageService(db *sql.DB, m repomanager.RepositoryManager, store ObjectStore, l logging.Logger) *ImageService {
	return &ImageService{session: newSession(db, m, store, l.With("module", "images"))}
}

func imagePrefix(k authz.Kind) string {
	if k == authz.KindMod {
		return authz.PrefixMods
	}
	return authz.PrefixVehicles
}

// Upload attaches a new image to a vehicle or a mod the caller owns.
func (s *ImageService) Upload(ctx context.Context, caller string, parent authz.Ref, caption string, up Upload) (*models.Image, error) {
	if parent.Kind != authz.KindVehicle && parent.Kind != authz.KindMod {
		return nil, common.ErrorValidation
	}
	if err := requireIDs(parent.ID); err != nil {
		return nil, err
	}
	caption, err := models.NormalizeCaption(caption)
	if err != nil {
		return nil, err
	}
	name, contentType, err := up.objectName()
	if err != nil {
		return nil, err
	}

	img := &models.Image{
		ProfileID:     caller,
		StorageBucket: s.store.Bucket(),
		StoragePath:   authz.ObjectPath(imagePrefix(parent.Kind), parent.ID, name),
		Caption:       caption,
	}
	if parent.Kind == authz.KindVehicle {
		img.VehicleID = &parent.ID
	} else {
		img.ModID = &parent.ID
	}
	if err := img.Validate(); err != nil {
		return nil, err
	}

	err = s.run(ctx, caller, func(ctx context.Context, tx dbx.DBTX, guard *authz.Guard) error {
		if err := guard.RequireImageWrite(ctx, img.ProfileID, parent, caller); err != nil {
			return err
		}
		return requireWritable(ctx, guard, s.repos.Ownership(tx), img.StoragePath, caller)
	})
	if err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, img.StoragePath, contentType, up.Data); err != nil {
		return nil, err
	}

	var created *models.Image
	err = s.run(ctx, caller, func(ctx context.Context, tx dbx.DBTX, guard *authz.Guard) error {
		if err := guard.RequireImageWrite(ctx, img.ProfileID, parent, caller); err != nil {
			return err
		}
		var err error
		created, err = s.repos.Images(tx).Create(ctx, img)
		return err
	})
	if err != nil {
		s.removeObjects(ctx, img.StoragePath)
		return nil, err
	}
	return created, nil
}

func (s *ImageService) UpdateCaption(ctx context.Context, caller, id, caption string) (*models.Image, error) {
	if err := requireIDs(id); err != nil {
		return nil, err
	}
	caption, err := models.NormalizeCaption(caption)
	if err != nil {
		return nil, err
	}
	var img *models.Image
	err = s.run(ctx, caller, func(ctx context.Context, tx dbx.DBTX, guard *authz.Guard) error {
		if err := guard.RequireOwner(ctx, authz.Ref{Kind: authz.KindImage, ID: id}, caller); err != nil {
			return err
		}
		var err error
		img, err = s.repos.Images(tx).UpdateCaption(ctx, id, caption)
		return err
	})
	return img, err
}

// Delete removes the row first and the object after commit; a failed object
// removal leaves an unreferenced object and is only logged.
func (s *ImageService) Delete(ctx context.Context, caller, id string) error {
	if err := requireIDs(id); err != nil {
		return err
	}
	var img *models.Image
	err := s.run(ctx, caller, func(ctx context.Context, tx dbx.DBTX, guard *authz.Guard) error {
		if err := guard.RequireOwner(ctx, authz.Ref{Kind: authz.KindImage, ID: id}, caller); err != nil {
			return err
		}
		var err error
		img, err = s.repos.Images(tx).Delete(ctx, id)
		return err
	})
	if err != nil {
		return err
	}
	s.removeObjects(ctx, img.StoragePath)
	return nil
}

// List returns the images of an owned vehicle and its mods, with URLs.
func (s *ImageService) List(ctx context.Context, caller, vehicleID string) ([]models.Image, error) {
	if err := requireIDs(vehicleID); err != nil {
		return nil, err
	}
	var imgs []models.Image
	err := s.run(ctx, caller, func(ctx context.Context, tx dbx.DBTX, guard *authz.Guard) error {
		if err := guard.RequireOwner(ctx, vehicleRef(vehicleID), caller); err != nil {
			return err
		}
		var err error
		imgs, err = s.repos.Images(tx).ListByVehicle(ctx, vehicleID)
		return err
	})
	if err != nil {
		return nil, err
	}
	for i := range imgs {
		if imgs[i].URL, err = s.store.SignURL(ctx, imgs[i].StoragePath); err != nil {
			return nil, err
		}
	}
	return imgs, nil
}
