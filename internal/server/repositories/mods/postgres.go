package mods

import (
	"context"
	"database/sql"
	"time"

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

const modColumns = `id, vehicle_id, title, category, cost_cents, notes, installed_on, sort_order, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanMod(row scanner) (*models.Mod, error) {
	m := &models.Mod{}
	var installed sql.NullTime
	err := row.Scan(&m.ID, &m.VehicleID, &m.Title, &m.Category, &m.CostCents, &m.Notes,
		&installed, &m.SortOrder, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, dbx.TranslateError(err)
	}
	if installed.Valid {
		m.InstalledOn = &installed.Time
	}
	return m, nil
}

func collect(rows *sql.Rows, err error) ([]models.Mod, error) {
	if err != nil {
		return nil, dbx.TranslateError(err)
	}
	defer rows.Close()

	out := []models.Mod{}
	for rows.Next() {
		m, err := scanMod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, dbx.TranslateError(rows.Err())
}

func dateArg(d *time.Time) any {
	if d == nil {
		return nil
	}
	return *d
}

// Create must run in a transaction; see vehicles.PostgresRepository.Create.
func (r *PostgresRepository) Create(ctx context.Context, profileID, vehicleID string, in models.ModInput, installedOn *time.Time) (*models.Mod, error) {
	if err := dbx.AdvisoryXactLock(ctx, r.db, ordering.ModsLockKey(profileID, vehicleID)); err != nil {
		return nil, err
	}
	query := `
		INSERT INTO mods (vehicle_id, title, category, cost_cents, notes, installed_on, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6,
			(SELECT COALESCE(MAX(sort_order) + 1, 0) FROM mods WHERE vehicle_id = $1))
		RETURNING ` + modColumns
	return scanMod(r.db.QueryRowContext(ctx, query,
		vehicleID, in.Title, in.Category, in.CostCents, in.Notes, dateArg(installedOn)))
}

func (r *PostgresRepository) ListByVehicle(ctx context.Context, vehicleID string) ([]models.Mod, error) {
	query := `
		SELECT ` + modColumns + `
		FROM mods
		WHERE vehicle_id = $1
		ORDER BY sort_order, created_at, id
	`
	return collect(r.db.QueryContext(ctx, query, vehicleID))
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Mod, error) {
	query := `SELECT ` + modColumns + ` FROM mods WHERE id = $1`
	return scanMod(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) Update(ctx context.Context, id string, in models.ModInput, installedOn *time.Time) (*models.Mod, error) {
	query := `
		UPDATE mods
		SET title = $2, category = $3, cost_cents = $4, notes = $5, installed_on = $6, updated_at = now()
		WHERE id = $1
		RETURNING ` + modColumns
	return scanMod(r.db.QueryRowContext(ctx, query,
		id, in.Title, in.Category, in.CostCents, in.Notes, dateArg(installedOn)))
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM mods WHERE id = $1`, id)
	if err != nil {
		return dbx.TranslateError(err)
	}
	return dbx.RequireAffected(res)
}

func (r *PostgresRepository) ListPublicByVehicle(ctx context.Context, vehicleID string) ([]models.Mod, error) {
	query := `
		SELECT id, vehicle_id, title, category, cost_cents, notes, installed_on, sort_order, created_at, created_at
		FROM public_mods
		WHERE vehicle_id = $1
		ORDER BY sort_order, created_at, id
	`
	return collect(r.db.QueryContext(ctx, query, vehicleID))
}

func (r *PostgresRepository) Siblings(profileID, vehicleID string) ordering.SiblingStore {
	return &siblings{db: r.db, profileID: profileID, vehicleID: vehicleID}
}
