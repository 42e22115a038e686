package authz

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/buildbio/internal/common"
	"github.com/dmitrijs2005/buildbio/internal/server/models"
	"github.com/google/uuid"
)

// PathReferences answers whether a storage path is referenced by a row
// that is publicly visible right now.
type PathReferences interface {
	IsPublicReadable(ctx context.Context, path string) (bool, error)
}

// PathWriters answers the database's own write predicate for a storage path.
type PathWriters interface {
	OwnerCanWrite(ctx context.Context, path, identity string) (bool, error)
}

// Object path prefixes.
const (
	PrefixAvatars  = "avatars"
	PrefixVehicles = "vehicles"
	PrefixMods     = "mods"
)

// ObjectOwnerCanWrite reports whether identity may write path: its own
// avatars/{identity}/..., or vehicles/{id}/... and mods/{id}/... for nodes
// it owns.
func (g *Guard) ObjectOwnerCanWrite(ctx context.Context, path, identity string) (bool, error) {
	if identity == "" || !models.ValidStoragePath(path) {
		return false, nil
	}
	parts := strings.Split(path, "/")
	if len(parts) < 3 {
		return false, nil
	}
	if _, err := uuid.Parse(parts[1]); err != nil {
		return false, nil
	}

	var ref Ref
	switch parts[0] {
	case PrefixAvatars:
		return parts[1] == identity, nil
	case PrefixVehicles:
		ref = Ref{Kind: KindVehicle, ID: parts[1]}
	case PrefixMods:
		ref = Ref{Kind: KindMod, ID: parts[1]}
	default:
		return false, nil
	}

	err := g.RequireOwner(ctx, ref, identity)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	return false, err
}

// ObjectIsPublicReadable reports whether path is currently referenced by a
// published avatar, a public vehicle's hero image or a public image row.
func ObjectIsPublicReadable(ctx context.Context, refs PathReferences, path string) (bool, error) {
	if !models.ValidStoragePath(path) {
		return false, nil
	}
	return refs.IsPublicReadable(ctx, path)
}

// ObjectPath builds {prefix}/{id}/{name}.
func ObjectPath(prefix, id, name string) string {
	return prefix + "/" + id + "/" + name
}
