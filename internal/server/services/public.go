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

// PublicProfile is the landing page of a published profile.
type PublicProfile struct {
	Profile   *models.Profile `json:"profile"`
	AvatarURL string          `json:"avatar_url,omitempty"`
	Vehicles  []PublicVehicle `json:"vehicles"`
}

type PublicVehicle struct {
	models.Vehicle
	HeroImageURL string `json:"hero_image_url,omitempty"`
}

// PublicBuild is one public vehicle with its mods and images.
type PublicBuild struct {
	Vehicle PublicVehicle  `json:"vehicle"`
	Mods    []models.Mod   `json:"mods"`
	Images  []models.Image `json:"images"`
}

// PublicService serves anonymous reads. Everything runs as the anonymous
// role, so only published profiles and public vehicles are visible.
type PublicService struct {
	session
}

func NewPublicService(db *sql.DB, m repomanager.RepositoryManager, store ObjectStore, l logging.Logger) *PublicService {
	return &PublicService{session: newSession(db, m, store, l.With("module", "public"))}
}

func (s *PublicService) Profile(ctx context.Context, username string) (*PublicProfile, error) {
	name, err := models.NormalizeUsername(&username)
	if err != nil || name == nil {
		return nil, common.ErrorNotFound
	}

	out := &PublicProfile{}
	err = s.run(ctx, "", func(ctx context.Context, tx dbx.DBTX, guard *authz.Guard) error {
		p, err := s.repos.Profiles(tx).GetPublicByUsername(ctx, *name)
		if err != nil {
			return err
		}
		if err := guard.RequirePublic(ctx, authz.Ref{Kind: authz.KindProfile, ID: p.ID}); err != nil {
			return err
		}
		vs, err := s.repos.Vehicles(tx).ListPublicByProfile(ctx, p.ID)
		if err != nil {
			return err
		}
		out.Profile = p
		out.Vehicles = make([]PublicVehicle, 0, len(vs))
		for _, v := range vs {
			out.Vehicles = append(out.Vehicles, PublicVehicle{Vehicle: v})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if out.Profile.AvatarPath != nil {
		if out.AvatarURL, err = s.store.URL(ctx, *out.Profile.AvatarPath); err != nil {
			return nil, err
		}
	}
	for i := range out.Vehicles {
		if err := s.heroURL(ctx, &out.Vehicles[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *PublicService) Build(ctx context.Context, username, vehicleID string) (*PublicBuild, error) {
	name, err := models.NormalizeUsername(&username)
	if err != nil || name == nil {
		return nil, common.ErrorNotFound
	}
	if err := requireIDs(vehicleID); err != nil {
		return nil, err
	}

	out := &PublicBuild{}
	err = s.run(ctx, "", func(ctx context.Context, tx dbx.DBTX, guard *authz.Guard) error {
		p, err := s.repos.Profiles(tx).GetPublicByUsername(ctx, *name)
		if err != nil {
			return err
		}
		if err := guard.RequirePublic(ctx, vehicleRef(vehicleID)); err != nil {
			return err
		}
		v, err := s.repos.Vehicles(tx).GetPublic(ctx, p.ID, vehicleID)
		if err != nil {
			return err
		}
		out.Vehicle = PublicVehicle{Vehicle: *v}
		if out.Mods, err = s.repos.Mods(tx).ListPublicByVehicle(ctx, vehicleID); err != nil {
			return err
		}
		out.Images, err = s.repos.Images(tx).ListPublicByVehicle(ctx, vehicleID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.heroURL(ctx, &out.Vehicle); err != nil {
		return nil, err
	}
	for i := range out.Images {
		if out.Images[i].URL, err = s.store.URL(ctx, out.Images[i].StoragePath); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *PublicService) heroURL(ctx context.Context, v *PublicVehicle) error {
	if v.HeroImagePath == nil {
		return nil
	}
	u, err := s.store.URL(ctx, *v.HeroImagePath)
	if err != nil {
		return err
	}
	v.HeroImageURL = u
	return nil
}

// MediaURL resolves a public object path to a fetchable URL. Paths that no
// public row references are reported as not found.
func (s *PublicService) MediaURL(ctx context.Context, path string) (string, error) {
	var ok bool
	err := s.run(ctx, "", func(ctx context.Context, tx dbx.DBTX, _ *authz.Guard) error {
		var err error
		ok, err = authz.ObjectIsPublicReadable(ctx, s.repos.Ownership(tx), path)
		return err
	})
	if err != nil {
		return "", err
	}
	if !ok {
		return "", common.ErrorNotFound
	}
	return s.store.URL(ctx, path)
}

// OwnerMediaURL signs a URL for an object the caller could write, public or
// not.
func (s *PublicService) OwnerMediaURL(ctx context.Context, caller, path string) (string, error) {
	err := s.run(ctx, caller, func(ctx context.Context, tx dbx.DBTX, guard *authz.Guard) error {
		return requireWritable(ctx, guard, s.repos.Ownership(tx), path, caller)
	})
	if err != nil {
		return "", err
	}
	return s.store.SignURL(ctx, path)
}
