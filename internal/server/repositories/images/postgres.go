package images

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/buildbio/internal/dbx"
	"github.com/dmitrijs2005/buildbio/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const imageColumns = `id, profile_id, vehicle_id, mod_id, storage_bucket, storage_path, caption, sort_order, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanImage(row scanner) (*models.Image, error) {
	i := &models.Image{}
	err := row.Scan(&i.ID, &i.ProfileID, &i.VehicleID, &i.ModID, &i.StorageBucket, &i.StoragePath,
		&i.Caption, &i.SortOrder, &i.CreatedAt)
	if err != nil {
		return nil, dbx.TranslateError(err)
	}
	return i, nil
}

func collect(rows *sql.Rows, err error) ([]models.Image, error) {
	if err != nil {
		return nil, dbx.TranslateError(err)
	}
	defer rows.Close()

	out := []models.Image{}
	for rows.Next() {
		i, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *i)
	}
	return out, dbx.TranslateError(rows.Err())
}

func (r *PostgresRepository) Create(ctx context.Context, img *models.Image) (*models.Image, error) {
	query := `
		INSERT INTO images (profile_id, vehicle_id, mod_id, storage_bucket, storage_path, caption, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6,
			(SELECT COALESCE(MAX(sort_order) + 1, 0) FROM images
			 WHERE vehicle_id IS NOT DISTINCT FROM $2::uuid AND mod_id IS NOT DISTINCT FROM $3::uuid))
		RETURNING ` + imageColumns
	return scanImage(r.db.QueryRowContext(ctx, query,
		img.ProfileID, img.VehicleID, img.ModID, img.StorageBucket, img.StoragePath, img.Caption))
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE id = $1`
	return scanImage(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) UpdateCaption(ctx context.Context, id, caption string) (*models.Image, error) {
	query := `UPDATE images SET caption = $2 WHERE id = $1 RETURNING ` + imageColumns
	return scanImage(r.db.QueryRowContext(ctx, query, id, caption))
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) (*models.Image, error) {
	query := `DELETE FROM images WHERE id = $1 RETURNING ` + imageColumns
	return scanImage(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) ListByVehicle(ctx context.Context, vehicleID string) ([]models.Image, error) {
	query := `
		SELECT ` + imageColumns + `
		FROM images
		WHERE vehicle_id = $1
		   OR mod_id IN (SELECT id FROM mods WHERE vehicle_id = $1)
		ORDER BY sort_order, created_at, id
	`
	return collect(r.db.QueryContext(ctx, query, vehicleID))
}

func (r *PostgresRepository) ListPublicByVehicle(ctx context.Context, vehicleID string) ([]models.Image, error) {
	query := `
		SELECT id, vehicle_id, mod_id, storage_bucket, storage_path, caption, sort_order, created_at
		FROM public_images
		WHERE vehicle_id = $1
		   OR mod_id IN (SELECT id FROM public_mods WHERE vehicle_id = $1)
		ORDER BY sort_order, created_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, vehicleID)
	if err != nil {
		return nil, dbx.TranslateError(err)
	}
	defer rows.Close()

	out := []models.Image{}
	for rows.Next() {
		var i models.Image
		if err := rows.Scan(&i.ID, &i.VehicleID, &i.ModID, &i.StorageBucket, &i.StoragePath,
			&i.Caption, &i.SortOrder, &i.CreatedAt); err != nil {
			return nil, dbx.TranslateError(err)
		}
		out = append(out, i)
	}
	return out, dbx.TranslateError(rows.Err())
}
