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

type ProfileService struct {
	session
}

func NewProfileService(db *sql.DB, m repomanager.RepositoryManager, store ObjectStore, l logging.Logger) *ProfileService {
	return &ProfileService{session: newSession(db, m, store, l.With("module", "profiles"))}
}

func (s *ProfileService) Get(ctx context.Context, caller string) (*models.Profile, error) {
	var p *models.Profile
	err := s.run(ctx, caller, func(ctx context.Context, tx dbx.DBTX, guard *authz.Guard) error {
		if err := guard.RequireOwner(ctx, authz.Ref{Kind: authz.KindProfile, ID: caller}, caller); err != nil {
			return err
		}
		var err error
		p, err = s.repos.Profiles(tx).Get(ctx, caller)
		return err
	})
	return p, err
}

func (s *ProfileService) Update(ctx context.Context, caller string, upd models.ProfileUpdate) (*models.Profile, error) {
	if err := upd.Normalize(); err != nil {
		return nil, err
	}
	var p *models.Profile
	err := s.run(ctx, caller, func(ctx context.Context, tx dbx.DBTX, guard *authz.Guard) error {
		if err := guard.RequireOwner(ctx, authz.Ref{Kind: authz.KindProfile, ID: caller}, caller); err != nil {
			return err
		}
		var err error
		p, err = s.repos.Profiles(tx).Update(ctx, caller, upd)
		return err
	})
	return p, err
}

// SetAvatar stores the upload under avatars/{caller}/ and points the profile
// at it. The previous avatar object is removed afterwards.
func (s *ProfileService) SetAvatar(ctx context.Context, caller string, up Upload) (*models.Profile, error) {
	name, contentType, err := up.objectName()
	if err != nil {
		return nil, err
	}
	path := authz.ObjectPath(authz.PrefixAvatars, caller, name)

	err = s.run(ctx, caller, func(ctx context.Context, tx dbx.DBTX, guard *authz.Guard) error {
		return requireWritable(ctx, guard, s.repos.Ownership(tx), path, caller)
	})
	if err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, path, contentType, up.Data); err != nil {
		return nil, err
	}

	var p *models.Profile
	var prev *string
	err = s.run(ctx, caller, func(ctx context.Context, tx dbx.DBTX, guard *authz.Guard) error {
		var err error
		repo := s.repos.Profiles(tx)
		if prev, err = repo.SetAvatar(ctx, caller, &path); err != nil {
			return err
		}
		p, err = repo.Get(ctx, caller)
		return err
	})
	if err != nil {
		s.removeObjects(ctx, path)
		return nil, err
	}
	if prev != nil {
		s.removeObjects(ctx, *prev)
	}
	return p, nil
}

// Delete removes the profile and everything below it, then the objects the
// tree referenced.
func (s *ProfileService) Delete(ctx context.Context, caller string) error {
	var paths []string
	err := s.run(ctx, caller, func(ctx context.Context, tx dbx.DBTX, guard *authz.Guard) error {
		if err := guard.RequireOwner(ctx, authz.Ref{Kind: authz.KindProfile, ID: caller}, caller); err != nil {
			return err
		}
		repo := s.repos.Profiles(tx)
		var err error
		if paths, err = repo.ObjectPaths(ctx, caller); err != nil {
			return err
		}
		return repo.Delete(ctx, caller)
	})
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "profile deleted", "profile_id", caller, "objects", len(paths))
	s.removeObjects(ctx, paths...)
	return nil
}

// requireWritable needs both the guard and the database's
// object_owner_can_write to agree before a path is handed out for writing.
func requireWritable(ctx context.Context, guard *authz.Guard, writers authz.PathWriters, path, caller string) error {
	ok, err := guard.ObjectOwnerCanWrite(ctx, path, caller)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrorNotFound
	}
	ok, err = writers.OwnerCanWrite(ctx, path, caller)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrorNotFound
	}
	return nil
}
