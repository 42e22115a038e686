package mods

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/buildbio/internal/common"
	"github.com/dmitrijs2005/buildbio/internal/dbx"
	"github.com/dmitrijs2005/buildbio/internal/server/models"
	"github.com/dmitrijs2005/buildbio/internal/server/ordering"
)

// siblings is the reorder scope of one vehicle's mods. Ownership is checked
// once, when the target row is locked; neighbors share its vehicle.
type siblings struct {
	db        dbx.DBTX
	profileID string
	vehicleID string
}

func (s *siblings) LockKey() string {
	return ordering.ModsLockKey(s.profileID, s.vehicleID)
}

func (s *siblings) LockItem(ctx context.Context, id string) (ordering.Position, error) {
	query := `
		SELECT m.id, m.sort_order, m.created_at
		FROM mods m
		JOIN vehicles v ON v.id = m.vehicle_id
		WHERE m.id = $1 AND m.vehicle_id = $2 AND v.profile_id = $3
		FOR UPDATE OF m
	`
	var p ordering.Position
	err := s.db.QueryRowContext(ctx, query, id, s.vehicleID, s.profileID).Scan(&p.ID, &p.SortOrder, &p.CreatedAt)
	if err != nil {
		return ordering.Position{}, dbx.TranslateError(err)
	}
	return p, nil
}

const (
	neighborAbove = `
		SELECT id, sort_order, created_at
		FROM mods
		WHERE vehicle_id = $1 AND (sort_order, created_at, id) < ($2, $3, $4::uuid)
		ORDER BY sort_order DESC, created_at DESC, id DESC
		LIMIT 1
		FOR UPDATE
	`
	neighborBelow = `
		SELECT id, sort_order, created_at
		FROM mods
		WHERE vehicle_id = $1 AND (sort_order, created_at, id) > ($2, $3, $4::uuid)
		ORDER BY sort_order, created_at, id
		LIMIT 1
		FOR UPDATE
	`
)

func (s *siblings) LockNeighbor(ctx context.Context, from ordering.Position, dir models.Direction) (ordering.Position, bool, error) {
	query := neighborBelow
	if dir == models.DirectionUp {
		query = neighborAbove
	}
	var p ordering.Position
	err := s.db.QueryRowContext(ctx, query, s.vehicleID, from.SortOrder, from.CreatedAt, from.ID).
		Scan(&p.ID, &p.SortOrder, &p.CreatedAt)
	if err != nil {
		err = dbx.TranslateError(err)
		if errors.Is(err, common.ErrorNotFound) {
			return ordering.Position{}, false, nil
		}
		return ordering.Position{}, false, err
	}
	return p, true, nil
}

func (s *siblings) Resequence(ctx context.Context) error {
	query := `
		UPDATE mods m
		SET sort_order = seq.pos - 1
		FROM (
			SELECT id, row_number() OVER (ORDER BY sort_order, created_at, id) AS pos
			FROM mods
			WHERE vehicle_id = $1
		) seq
		WHERE m.id = seq.id AND m.vehicle_id = $1
	`
	if _, err := s.db.ExecContext(ctx, query, s.vehicleID); err != nil {
		return dbx.TranslateError(err)
	}
	return nil
}

func (s *siblings) Swap(ctx context.Context, a, b ordering.Position) error {
	query := `
		UPDATE mods
		SET sort_order = CASE id WHEN $2::uuid THEN $3::integer WHEN $4::uuid THEN $5::integer END,
			updated_at = now()
		WHERE vehicle_id = $1 AND id IN ($2::uuid, $4::uuid)
	`
	res, err := s.db.ExecContext(ctx, query, s.vehicleID, a.ID, b.SortOrder, b.ID, a.SortOrder)
	if err != nil {
		return dbx.TranslateError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbx.TranslateError(err)
	}
	if n != 2 {
		return fmt.Errorf("swap touched %d rows, want 2", n)
	}
	return nil
}
