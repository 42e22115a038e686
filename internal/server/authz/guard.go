package authz

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/buildbio/internal/common"
	"github.com/dmitrijs2005/buildbio/internal/server/observability"
)

// Guard turns predicate results into errors. Denials are always reported as
// common.ErrorNotFound so a caller cannot tell "not yours" from "missing".
type Guard struct {
	resolver *Resolver
}

func NewGuard(src NodeSource) *Guard {
	return &Guard{resolver: NewResolver(src)}
}

// RequireOwner fails unless caller owns ref.
func (g *Guard) RequireOwner(ctx context.Context, ref Ref, caller string) error {
	l, err := g.resolver.Lineage(ctx, ref)
	if err != nil {
		return g.deny(ref, "owner", err)
	}
	if !OwnerPredicate(l, caller) {
		return g.deny(ref, "owner", nil)
	}
	return nil
}

// RequirePublic fails unless anyone may read ref.
func (g *Guard) RequirePublic(ctx context.Context, ref Ref) error {
	l, err := g.resolver.Lineage(ctx, ref)
	if err != nil {
		return g.deny(ref, "public", err)
	}
	if !PublicPredicate(l) {
		return g.deny(ref, "public", nil)
	}
	return nil
}

// RequireImageWrite checks a new or changed image row: the profile it is
// tagged with must be the caller, and its parent must be owned by the
// caller through the parent's own chain.
func (g *Guard) RequireImageWrite(ctx context.Context, profileID string, parent Ref, caller string) error {
	if parent.Kind != KindVehicle && parent.Kind != KindMod {
		return common.ErrorValidation
	}
	if profileID != caller {
		return g.deny(Ref{Kind: KindImage}, "image_write", nil)
	}
	l, err := g.resolver.Lineage(ctx, parent)
	if err != nil {
		return g.deny(Ref{Kind: KindImage}, "image_write", err)
	}
	if !OwnerPredicate(l, caller) {
		return g.deny(Ref{Kind: KindImage}, "image_write", nil)
	}
	return nil
}

// deny passes infrastructure errors through untouched.
func (g *Guard) deny(ref Ref, predicate string, err error) error {
	if err != nil && !errors.Is(err, common.ErrorNotFound) && !errors.Is(err, errBrokenLineage) {
		return err
	}
	observability.AuthzDenials.WithLabelValues(string(ref.Kind), predicate).Inc()
	return common.ErrorNotFound
}
