package vehicles

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/buildbio/internal/dbx"
	"github.com/dmitrijs2005/buildbio/internal/server/models"
	"github.com/dmitrijs2005/buildbio/internal/server/ordering"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const vehicleColumns = `id, profile_id, name, year, make, model, trim_level, hero_image_path, is_public, sort_order, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanVehicle(row scanner) (*models.Vehicle, error) {
	v := &models.Vehicle{}
	var year sql.NullInt32
	err := row.Scan(&v.ID, &v.ProfileID, &v.Name, &year, &v.Make, &v.Model, &v.Trim,
		&v.HeroImagePath, &v.IsPublic, &v.SortOrder, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, dbx.TranslateError(err)
	}
	if year.Valid {
		y := int(year.Int32)
		v.Year = &y
	}
	return v, nil
}

func collect(rows *sql.Rows, err error) ([]models.Vehicle, error) {
	if err != nil {
		return nil, dbx.TranslateError(err)
	}
	defer rows.Close()

	out := []models.Vehicle{}
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, dbx.TranslateError(rows.Err())
}

func yearArg(y *int) any {
	if y == nil {
		return nil
	}
	return int64(*y)
}

// Create must run in a transaction: the advisory lock and the max+1 read
// keep concurrent appends from sharing a sort_order.
func (r *PostgresRepository) Create(ctx context.Context, profileID string, in models.VehicleInput) (*models.Vehicle, error) {
	if err := dbx.AdvisoryXactLock(ctx, r.db, ordering.VehiclesLockKey(profileID)); err != nil {
		return nil, err
	}
	query := `
		INSERT INTO vehicles (profile_id, name, year, make, model, trim_level, is_public, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7,
			(SELECT COALESCE(MAX(sort_order) + 1, 0) FROM vehicles WHERE profile_id = $1))
		RETURNING ` + vehicleColumns
	return scanVehicle(r.db.QueryRowContext(ctx, query,
		profileID, in.Name, yearArg(in.Year), in.Make, in.Model, in.Trim, in.IsPublic))
}

func (r *PostgresRepository) ListByProfile(ctx context.Context, profileID string) ([]models.Vehicle, error) {
	query := `
		SELECT ` + vehicleColumns + `
		FROM vehicles
		WHERE profile_id = $1
		ORDER BY sort_order, created_at, id
	`
	return collect(r.db.QueryContext(ctx, query, profileID))
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1`
	return scanVehicle(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) Update(ctx context.Context, id string, in models.VehicleInput) (*models.Vehicle, error) {
	query := `
		UPDATE vehicles
		SET name = $2, year = $3, make = $4, model = $5, trim_level = $6, is_public = $7, updated_at = now()
		WHERE id = $1
		RETURNING ` + vehicleColumns
	return scanVehicle(r.db.QueryRowContext(ctx, query,
		id, in.Name, yearArg(in.Year), in.Make, in.Model, in.Trim, in.IsPublic))
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM vehicles WHERE id = $1`, id)
	if err != nil {
		return dbx.TranslateError(err)
	}
	return dbx.RequireAffected(res)
}

func (r *PostgresRepository) SetHeroImage(ctx context.Context, id string, path *string) (*string, error) {
	query := `
		UPDATE vehicles v
		SET hero_image_path = $2, updated_at = now()
		FROM (SELECT hero_image_path FROM vehicles WHERE id = $1 FOR UPDATE) old
		WHERE v.id = $1
		RETURNING old.hero_image_path
	`
	var prev *string
	if err := r.db.QueryRowContext(ctx, query, id, path).Scan(&prev); err != nil {
		return nil, dbx.TranslateError(err)
	}
	return prev, nil
}

func (r *PostgresRepository) SetPublic(ctx context.Context, id string, public bool) (*models.Vehicle, error) {
	query := `
		UPDATE vehicles
		SET is_public = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + vehicleColumns
	return scanVehicle(r.db.QueryRowContext(ctx, query, id, public))
}

const publicVehicleColumns = `id, profile_id, name, year, make, model, trim_level, hero_image_path, sort_order, created_at`

func scanPublicVehicle(row scanner) (*models.Vehicle, error) {
	v := &models.Vehicle{IsPublic: true}
	var year sql.NullInt32
	err := row.Scan(&v.ID, &v.ProfileID, &v.Name, &year, &v.Make, &v.Model, &v.Trim,
		&v.HeroImagePath, &v.SortOrder, &v.CreatedAt)
	if err != nil {
		return nil, dbx.TranslateError(err)
	}
	if year.Valid {
		y := int(year.Int32)
		v.Year = &y
	}
	v.UpdatedAt = v.CreatedAt
	return v, nil
}

func (r *PostgresRepository) ListPublicByProfile(ctx context.Context, profileID string) ([]models.Vehicle, error) {
	query := `
		SELECT ` + publicVehicleColumns + `
		FROM public_vehicles
		WHERE profile_id = $1
		ORDER BY sort_order, created_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, profileID)
	if err != nil {
		return nil, dbx.TranslateError(err)
	}
	defer rows.Close()

	out := []models.Vehicle{}
	for rows.Next() {
		v, err := scanPublicVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, dbx.TranslateError(rows.Err())
}

func (r *PostgresRepository) GetPublic(ctx context.Context, profileID, id string) (*models.Vehicle, error) {
	query := `SELECT ` + publicVehicleColumns + ` FROM public_vehicles WHERE id = $1 AND profile_id = $2`
	return scanPublicVehicle(r.db.QueryRowContext(ctx, query, id, profileID))
}

func (r *PostgresRepository) Siblings(profileID string) ordering.SiblingStore {
	return &siblings{db: r.db, profileID: profileID}
}
