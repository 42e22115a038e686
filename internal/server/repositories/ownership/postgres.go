// Package ownership feeds the authorization resolver: it loads single nodes
// of the ownership tree and answers storage path lookups. Queries run under
// the caller's row-level security identity, so rows the caller cannot see
// come back as not found.
package ownership

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/buildbio/internal/common"
	"github.com/dmitrijs2005/buildbio/internal/dbx"
	"github.com/dmitrijs2005/buildbio/internal/server/authz"
	"github.com/google/uuid"
)

// Repository is what the authorization guard reads.
type Repository interface {
	authz.NodeSource
	authz.PathReferences
	authz.PathWriters
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var _ Repository = (*PostgresRepository)(nil)

func (r *PostgresRepository) Node(ctx context.Context, ref authz.Ref) (authz.Node, error) {
	if _, err := uuid.Parse(ref.ID); err != nil {
		return authz.Node{}, common.ErrorNotFound
	}
	n := authz.Node{Ref: ref}

	var err error
	switch ref.Kind {
	case authz.KindProfile:
		err = r.db.QueryRowContext(ctx,
			`SELECT username IS NOT NULL FROM profiles WHERE id = $1`, ref.ID).
			Scan(&n.Public)

	case authz.KindVehicle:
		n.Parent.Kind = authz.KindProfile
		err = r.db.QueryRowContext(ctx,
			`SELECT profile_id, is_public FROM vehicles WHERE id = $1`, ref.ID).
			Scan(&n.Parent.ID, &n.Public)

	case authz.KindMod:
		n.Parent.Kind = authz.KindVehicle
		n.Public = true
		err = r.db.QueryRowContext(ctx,
			`SELECT vehicle_id FROM mods WHERE id = $1`, ref.ID).
			Scan(&n.Parent.ID)

	case authz.KindImage:
		var vehicleID, modID sql.NullString
		n.Public = true
		err = r.db.QueryRowContext(ctx,
			`SELECT profile_id, vehicle_id, mod_id FROM images WHERE id = $1`, ref.ID).
			Scan(&n.OwnerTag, &vehicleID, &modID)
		if vehicleID.Valid {
			n.Parent = authz.Ref{Kind: authz.KindVehicle, ID: vehicleID.String}
		} else if modID.Valid {
			n.Parent = authz.Ref{Kind: authz.KindMod, ID: modID.String}
		}

	default:
		return authz.Node{}, fmt.Errorf("unknown kind %q: %w", ref.Kind, common.ErrorValidation)
	}

	if err != nil {
		return authz.Node{}, dbx.TranslateError(err)
	}
	return n, nil
}

func (r *PostgresRepository) IsPublicReadable(ctx context.Context, path string) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, `SELECT app.object_is_public_readable($1)`, path).Scan(&ok); err != nil {
		return false, dbx.TranslateError(err)
	}
	return ok, nil
}

func (r *PostgresRepository) OwnerCanWrite(ctx context.Context, path, identity string) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, `SELECT app.object_owner_can_write($1, $2::uuid)`, path, identity).Scan(&ok); err != nil {
		return false, dbx.TranslateError(err)
	}
	return ok, nil
}
