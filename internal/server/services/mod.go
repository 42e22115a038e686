package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/buildbio/internal/common"
	"github.com/dmitrijs2005/buildbio/internal/dbx"
	"github.com/dmitrijs2005/buildbio/internal/logging"
	"github.com/dmitrijs2005/buildbio/internal/server/authz"
	"github.com/dmitrijs2005/buildbio/internal/server/models"
	"github.com/dmitrijs2005/buildbio/internal/server/ordering"
	"github.com/dmitrijs2005/buildbio/internal/server/repositories/repomanager"
)

type ModService struct {
	session
}

func NewModService(db *sql.DB, m repomanager.RepositoryManager, store ObjectStore, l logging.Logger) *ModService {
	return &ModService{session: newSession(db, m, store, l.With("module", "mods"))}
}

func modRef(id string) authz.Ref { return authz.Ref{Kind: authz.KindMod, ID: id} }

// ownedMod checks the caller owns modID and that it hangs off vehicleID.
func (s *ModService) ownedMod(ctx context.Context, tx dbx.DBTX, guard *authz.Guard, caller, vehicleID, modID string) (*models.Mod, error) {
	if err := guard.RequireOwner(ctx, modRef(modID), caller); err != nil {
		return nil, err
	}
	m, err := s.repos.Mods(tx).Get(ctx, modID)
	if err != nil {
		return nil, err
	}
	if m.VehicleID != vehicleID {
		return nil, common.ErrorNotFound
	}
	return m, nil
}

func (s *ModService) Create(ctx context.Context, caller, vehicleID string, in models.ModInput) (*models.Mod, error) {
	if err := requireIDs(vehicleID); err != nil {
		return nil, err
	}
	installed, err := in.Normalize()
	if err != nil {
		return nil, err
	}
	var m *models.Mod
	err = s.run(ctx, caller, func(ctx context.Context, tx dbx.DBTX, guard *authz.Guard) error {
		if err := guard.RequireOwner(ctx, vehicleRef(vehicleID), caller); err != nil {
			return err
		}
		var err error
		m, err = s.repos.Mods(tx).Create(ctx, caller, vehicleID, in, installed)
		return err
	})
	return m, err
}

func (s *ModService) List(ctx context.Context, caller, vehicleID string) ([]models.Mod, error) {
	if err := requireIDs(vehicleID); err != nil {
		return nil, err
	}
	var ms []models.Mod
	err := s.run(ctx, caller, func(ctx context.Context, tx dbx.DBTX, guard *authz.Guard) error {
		if err := guard.RequireOwner(ctx, vehicleRef(vehicleID), caller); err != nil {
			return err
		}
		var err error
		ms, err = s.repos.Mods(tx).ListByVehicle(ctx, vehicleID)
		return err
	})
	return ms, err
}

func (s *ModService) Update(ctx context.Context, caller, vehicleID, modID string, in models.ModInput) (*models.Mod, error) {
	if err := requireIDs(vehicleID, modID); err != nil {
		return nil, err
	}
	installed, err := in.Normalize()
	if err != nil {
		return nil, err
	}
	var m *models.Mod
	err = s.run(ctx, caller, func(ctx context.Context, tx dbx.DBTX, guard *authz.Guard) error {
		if _, err := s.ownedMod(ctx, tx, guard, caller, vehicleID, modID); err != nil {
			return err
		}
		var err error
		m, err = s.repos.Mods(tx).Update(ctx, modID, in, installed)
		return err
	})
	return m, err
}

// Delete removes the mod and its images, then their objects.
func (s *ModService) Delete(ctx context.Context, caller, vehicleID, modID string) error {
	if err := requireIDs(vehicleID, modID); err != nil {
		return err
	}
	var paths []string
	err := s.run(ctx, caller, func(ctx context.Context, tx dbx.DBTX, guard *authz.Guard) error {
		if _, err := s.ownedMod(ctx, tx, guard, caller, vehicleID, modID); err != nil {
			return err
		}
		imgs, err := s.repos.Images(tx).ListByVehicle(ctx, vehicleID)
		if err != nil {
			return err
		}
		for _, img := range imgs {
			if img.ModID != nil && *img.ModID == modID {
				paths = append(paths, img.StoragePath)
			}
		}
		return s.repos.Mods(tx).Delete(ctx, modID)
	})
	if err != nil {
		return err
	}
	s.removeObjects(ctx, paths...)
	return nil
}

// Reorder moves the mod one step within its vehicle.
func (s *ModService) Reorder(ctx context.Context, caller, vehicleID, modID string, dir models.Direction) (models.ReorderOutcome, error) {
	if requireIDs(vehicleID, modID) != nil {
		return models.ReorderNotFound, nil
	}
	var out models.ReorderOutcome
	err := s.run(ctx, caller, func(ctx context.Context, tx dbx.DBTX, _ *authz.Guard) error {
		var err error
		out, err = ordering.Reorder(ctx, tx, string(authz.KindMod), s.repos.Mods(tx).Siblings(caller, vehicleID), modID, dir)
		return err
	})
	return out, err
}
