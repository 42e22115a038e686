// Package ordering moves a vehicle or mod one position among its siblings.
//
// Siblings are totally ordered by (sort_order, created_at, id). A reorder
// runs inside one transaction: it takes an advisory lock for the sibling
// scope, row-locks the target and its neighbor, and exchanges their
// sort_order values in a single statement.
package ordering

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/buildbio/internal/common"
	"github.com/dmitrijs2005/buildbio/internal/dbx"
	"github.com/dmitrijs2005/buildbio/internal/server/models"
	"github.com/dmitrijs2005/buildbio/internal/server/observability"
	"go.opentelemetry.io/otel/attribute"
)

// Position of one sibling. Siblings are ordered by (SortOrder, CreatedAt,
// ID), which the stores express in SQL.
type Position struct {
	ID        string
	SortOrder int
	CreatedAt time.Time
}

// SiblingStore is one sibling scope (an owner's vehicles, or one vehicle's
// mods) bound to the reorder transaction.
type SiblingStore interface {
	// LockKey names the advisory lock for the scope.
	LockKey() string
	// LockItem row-locks id inside the scope. A row that is missing or not
	// owned by the caller yields common.ErrorNotFound.
	LockItem(ctx context.Context, id string) (Position, error)
	// LockNeighbor row-locks the adjacent sibling of from in dir. ok is false
	// when from is already first (up) or last (down).
	LockNeighbor(ctx context.Context, from Position, dir models.Direction) (n Position, ok bool, err error)
	// Resequence rewrites sort_order to 0..n-1 following the current total order.
	Resequence(ctx context.Context) error
	// Swap exchanges the sort_order of exactly the two given rows.
	Swap(ctx context.Context, a, b Position) error
}

// Reorder moves id one step in dir. tx must be the transaction the store is
// bound to. Missing or foreign rows are reported as ReorderNotFound, never as
// an error.
func Reorder(ctx context.Context, tx dbx.DBTX, kind string, s SiblingStore, id string, dir models.Direction) (out models.ReorderOutcome, err error) {
	ctx, span := observability.StartSpan(ctx, "ordering.Reorder",
		attribute.String("kind", kind),
		attribute.String("direction", string(dir)),
	)
	defer func() {
		if err == nil {
			span.SetAttributes(attribute.String("outcome", string(out)))
			observability.ReorderOutcomes.WithLabelValues(kind, string(out)).Inc()
		}
		observability.EndSpan(span, err)
	}()

	if err := dbx.AdvisoryXactLock(ctx, tx, s.LockKey()); err != nil {
		return "", err
	}

	item, err := s.LockItem(ctx, id)
	if errors.Is(err, common.ErrorNotFound) {
		return models.ReorderNotFound, nil
	}
	if err != nil {
		return "", err
	}

	neighbor, ok, err := s.LockNeighbor(ctx, item, dir)
	if err != nil {
		return "", err
	}
	if !ok {
		return models.ReorderBoundary, nil
	}

	// Exchanging equal values would leave the order unchanged.
	if item.SortOrder == neighbor.SortOrder {
		if err := s.Resequence(ctx); err != nil {
			return "", err
		}
		if item, err = s.LockItem(ctx, item.ID); err != nil {
			return "", err
		}
		if neighbor, err = s.LockItem(ctx, neighbor.ID); err != nil {
			return "", err
		}
	}

	if err := s.Swap(ctx, item, neighbor); err != nil {
		return "", err
	}
	return models.ReorderMoved, nil
}

// VehiclesLockKey serializes reorders and appends among one owner's vehicles.
func VehiclesLockKey(profileID string) string {
	return "reorder:vehicles:" + profileID
}

// ModsLockKey serializes reorders and appends among one vehicle's mods.
func ModsLockKey(profileID, vehicleID string) string {
	return "reorder:mods:" + profileID + ":" + vehicleID
}
