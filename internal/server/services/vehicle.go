package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/buildbio/internal/dbx"
	"github.com/dmitrijs2005/buildbio/internal/logging"
	"github.com/dmitrijs2005/buildbio/internal/server/authz"
	"github.com/dmitrijs2005/buildbio/internal/server/models"
	"github.com/dmitrijs2005/buildbio/internal/server/ordering"
	"github.com/dmitrijs2005/buildbio/internal/server/repositories/repomanager"
)

type VehicleService struct {
	session
}

func NewVehicleService(db *sql.DB, m repomanager.RepositoryManager, store ObjectStore, l logging.Logger) *VehicleService {
	return &VehicleService{session: newSession(db, m, store, l.With("module", "vehicles"))}
}

func vehicleRef(id string) authz.Ref { return authz.Ref{Kind: authz.KindVehicle, ID: id} }

func (s *VehicleService) Create(ctx context.Context, caller string, in models.VehicleInput) (*models.Vehicle, error) {
	if err := in.Normalize(); err != nil {
		return nil, err
	}
	var v *models.Vehicle
	err := s.run(ctx, caller, func(ctx context.Context, tx dbx.DBTX, guard *authz.Guard) error {
		if err := guard.RequireOwner(ctx, authz.Ref{Kind: authz.KindProfile, ID: caller}, caller); err != nil {
			return err
		}
		var err error
		v, err = s.repos.Vehicles(tx).Create(ctx, caller, in)
		return err
	})
	return v, err
}

func (s *VehicleService) List(ctx context.Context, caller string) ([]models.Vehicle, error) {
	var vs []models.Vehicle
	err := s.run(ctx, caller, func(ctx context.Context, tx dbx.DBTX, _ *authz.Guard) error {
		var err error
		vs, err = s.repos.Vehicles(tx).ListByProfile(ctx, caller)
		return err
	})
	return vs, err
}

func (s *VehicleService) Get(ctx context.Context, caller, id string) (*models.Vehicle, error) {
	if err := requireIDs(id); err != nil {
		return nil, err
	}
	var v *models.Vehicle
	err := s.run(ctx, caller, func(ctx context.Context, tx dbx.DBTX, guard *authz.Guard) error {
		if err := guard.RequireOwner(ctx, vehicleRef(id), caller); err != nil {
			return err
		}
		var err error
		v, err = s.repos.Vehicles(tx).Get(ctx, id)
		return err
	})
	return v, err
}

func (s *VehicleService) Update(ctx context.Context, caller, id string, in models.VehicleInput) (*models.Vehicle, error) {
	if err := requireIDs(id); err != nil {
		return nil, err
	}
	if err := in.Normalize(); err != nil {
		return nil, err
	}
	var v *models.Vehicle
	err := s.run(ctx, caller, func(ctx context.Context, tx dbx.DBTX, guard *authz.Guard) error {
		if err := guard.RequireOwner(ctx, vehicleRef(id), caller); err != nil {
			return err
		}
		var err error
		v, err = s.repos.Vehicles(tx).Update(ctx, id, in)
		return err
	})
	return v, err
}

func (s *VehicleService) SetPublic(ctx context.Context, caller, id string, public bool) (*models.Vehicle, error) {
	if err := requireIDs(id); err != nil {
		return nil, err
	}
	var v *models.Vehicle
	err := s.run(ctx, caller, func(ctx context.Context, tx dbx.DBTX, guard *authz.Guard) error {
		if err := guard.RequireOwner(ctx, vehicleRef(id), caller); err != nil {
			return err
		}
		var err error
		v, err = s.repos.Vehicles(tx).SetPublic(ctx, id, public)
		return err
	})
	return v, err
}

// Delete removes the vehicle with its mods and images, then their objects.
func (s *VehicleService) Delete(ctx context.Context, caller, id string) error {
	if err := requireIDs(id); err != nil {
		return err
	}
	var paths []string
	err := s.run(ctx, caller, func(ctx context.Context, tx dbx.DBTX, guard *authz.Guard) error {
		if err := guard.RequireOwner(ctx, vehicleRef(id), caller); err != nil {
			return err
		}
		repo := s.repos.Vehicles(tx)
		v, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		imgs, err := s.repos.Images(tx).ListByVehicle(ctx, id)
		if err != nil {
			return err
		}
		if v.HeroImagePath != nil {
			paths = append(paths, *v.HeroImagePath)
		}
		for _, img := range imgs {
			paths = append(paths, img.StoragePath)
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.removeObjects(ctx, paths...)
	return nil
}

// SetHeroImage uploads the vehicle's cover image.
func (s *VehicleService) SetHeroImage(ctx context.Context, caller, id string, up Upload) (*models.Vehicle, error) {
	if err := requireIDs(id); err != nil {
		return nil, err
	}
	name, contentType, err := up.objectName()
	if err != nil {
		return nil, err
	}
	path := authz.ObjectPath(authz.PrefixVehicles, id, name)

	err = s.run(ctx, caller, func(ctx context.Context, tx dbx.DBTX, guard *authz.Guard) error {
		return requireWritable(ctx, guard, s.repos.Ownership(tx), path, caller)
	})
	if err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, path, contentType, up.Data); err != nil {
		return nil, err
	}

	var v *models.Vehicle
	var prev *string
	err = s.run(ctx, caller, func(ctx context.Context, tx dbx.DBTX, guard *authz.Guard) error {
		if err := guard.RequireOwner(ctx, vehicleRef(id), caller); err != nil {
			return err
		}
		repo := s.repos.Vehicles(tx)
		var err error
		if prev, err = repo.SetHeroImage(ctx, id, &path); err != nil {
			return err
		}
		v, err = repo.Get(ctx, id)
		return err
	})
	if err != nil {
		s.removeObjects(ctx, path)
		return nil, err
	}
	if prev != nil {
		s.removeObjects(ctx, *prev)
	}
	return v, nil
}

// Reorder moves the vehicle one step among the caller's vehicles. Vehicles
// that are missing or belong to someone else yield ReorderNotFound.
func (s *VehicleService) Reorder(ctx context.Context, caller, id string, dir models.Direction) (models.ReorderOutcome, error) {
	if requireIDs(id) != nil {
		return models.ReorderNotFound, nil
	}
	var out models.ReorderOutcome
	err := s.run(ctx, caller, func(ctx context.Context, tx dbx.DBTX, _ *authz.Guard) error {
		var err error
		out, err = ordering.Reorder(ctx, tx, string(authz.KindVehicle), s.repos.Vehicles(tx).Siblings(caller), id, dir)
		return err
	})
	return out, err
}
