package vehicles

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/buildbio/internal/common"
	"github.com/dmitrijs2005/buildbio/internal/dbx"
	"github.com/dmitrijs2005/buildbio/internal/server/models"
	"github.com/dmitrijs2005/buildbio/internal/server/ordering"
)

// siblings is the reorder scope of one owner's vehicles.
type siblings struct {
	db        dbx.DBTX
	profileID string
}

func (s *siblings) LockKey() string {
	return ordering.VehiclesLockKey(s.profileID)
}

func (s *siblings) LockItem(ctx context.Context, id string) (ordering.Position, error) {
	query := `
		SELECT id, sort_order, created_at
		FROM vehicles
		WHERE id = $1 AND profile_id = $2
		FOR UPDATE
	`
	var p ordering.Position
	if err := s.db.QueryRowContext(ctx, query, id, s.profileID).Scan(&p.ID, &p.SortOrder, &p.CreatedAt); err != nil {
		return ordering.Position{}, dbx.TranslateError(err)
	}
	return p, nil
}

const (
	neighborAbove = `
		SELECT id, sort_order, created_at
		FROM vehicles
		WHERE profile_id = $1 AND (sort_order, created_at, id) < ($2, $3, $4::uuid)
		ORDER BY sort_order DESC, created_at DESC, id DESC
		LIMIT 1
		FOR UPDATE
	`
	neighborBelow = `
		SELECT id, sort_order, created_at
		FROM vehicles
		WHERE profile_id = $1 AND (sort_order, created_at, id) > ($2, $3, $4::uuid)
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
	err := s.db.QueryRowContext(ctx, query, s.profileID, from.SortOrder, from.CreatedAt, from.ID).
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
		UPDATE vehicles v
		SET sort_order = seq.pos - 1
		FROM (
			SELECT id, row_number() OVER (ORDER BY sort_order, created_at, id) AS pos
			FROM vehicles
			WHERE profile_id = $1
		) seq
		WHERE v.id = seq.id AND v.profile_id = $1
	`
	if _, err := s.db.ExecContext(ctx, query, s.profileID); err != nil {
		return dbx.TranslateError(err)
	}
	return nil
}

func (s *siblings) Swap(ctx context.Context, a, b ordering.Position) error {
	query := `
		UPDATE vehicles
		SET sort_order = CASE id WHEN $2::uuid THEN $3::integer WHEN $4::uuid THEN $5::integer END,
			updated_at = now()
		WHERE profile_id = $1 AND id IN ($2::uuid, $4::uuid)
	`
	res, err := s.db.ExecContext(ctx, query, s.profileID, a.ID, b.SortOrder, b.ID, a.SortOrder)
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
