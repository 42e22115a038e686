// Package authz decides who may read or write a node of the ownership tree
// Profile -> Vehicle -> Mod -> Image, and which object storage paths a
// caller may touch.
//
// Every decision is made over a Lineage: the chain of nodes from the
// requested node up to the profile at its root, produced by one traversal
// (Resolver.Lineage) shared by all entity kinds. The same rules are enforced
// again by the row-level security policies in the database.
package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/buildbio/internal/common"
)

type Kind string

const (
	KindProfile Kind = "profile"
	KindVehicle Kind = "vehicle"
	KindMod     Kind = "mod"
	KindImage   Kind = "image"
)

// Ref names one node of the ownership tree.
type Ref struct {
	Kind Kind
	ID   string
}

func (r Ref) IsZero() bool { return r.ID == "" }

func (r Ref) String() string { return string(r.Kind) + ":" + r.ID }

// Node is what the resolver needs to know about one row.
//
// Parent is zero for profiles. OwnerTag is a profile id stored on the row
// itself (images carry one); it must agree with the root. Public is the
// node's own visibility flag: a profile's "published", a vehicle's
// is_public, always true for mods and images.
type Node struct {
	Ref      Ref
	Parent   Ref
	OwnerTag string
	Public   bool
}

// NodeSource loads single nodes. It returns common.ErrorNotFound for rows
// that do not exist or that the current identity cannot see.
type NodeSource interface {
	Node(ctx context.Context, ref Ref) (Node, error)
}

// Lineage is ordered from the requested node to the root profile.
type Lineage []Node

// Root returns the profile id at the top of the chain.
func (l Lineage) Root() string {
	if len(l) == 0 {
		return ""
	}
	return l[len(l)-1].Ref.ID
}

var errBrokenLineage = errors.New("broken lineage")

// allowed parent kinds per kind
var parentKinds = map[Kind][]Kind{
	KindProfile: nil,
	KindVehicle: {KindProfile},
	KindMod:     {KindVehicle},
	KindImage:   {KindVehicle, KindMod},
}

// maxDepth is the length of the longest chain, image -> mod -> vehicle -> profile.
const maxDepth = 4

type Resolver struct {
	src NodeSource
}

func NewResolver(src NodeSource) *Resolver {
	return &Resolver{src: src}
}

// Lineage walks parent references from ref to its profile.
func (r *Resolver) Lineage(ctx context.Context, ref Ref) (Lineage, error) {
	if ref.IsZero() {
		return nil, common.ErrorNotFound
	}
	if _, ok := parentKinds[ref.Kind]; !ok {
		return nil, fmt.Errorf("unknown kind %q: %w", ref.Kind, common.ErrorValidation)
	}

	lineage := make(Lineage, 0, maxDepth)
	cur := ref
	for {
		if len(lineage) == maxDepth {
			return nil, errBrokenLineage
		}

		node, err := r.src.Node(ctx, cur)
		if err != nil {
			return nil, err
		}
		lineage = append(lineage, node)

		if cur.Kind == KindProfile {
			return lineage, nil
		}
		if !validParent(cur.Kind, node.Parent.Kind) || node.Parent.IsZero() {
			return nil, fmt.Errorf("%w: %s has parent %s", errBrokenLineage, cur, node.Parent)
		}
		cur = node.Parent
	}
}

func validParent(child, parent Kind) bool {
	for _, k := range parentKinds[child] {
		if k == parent {
			return true
		}
	}
	return false
}
