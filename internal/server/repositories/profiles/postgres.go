package profiles

import (
	"context"

	"github.com/dmitrijs2005/buildbio/internal/dbx"
	"github.com/dmitrijs2005/buildbio/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const profileColumns = `id, username, display_name, bio, avatar_path, is_pro, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (*models.Profile, error) {
	p := &models.Profile{}
	err := row.Scan(&p.ID, &p.Username, &p.DisplayName, &p.Bio, &p.AvatarPath, &p.IsPro, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, dbx.TranslateError(err)
	}
	return p, nil
}

func (r *PostgresRepository) Provision(ctx context.Context, id string) error {
	query := `
		INSERT INTO profiles (id)
		VALUES ($1)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return dbx.TranslateError(err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	return scanProfile(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) Update(ctx context.Context, id string, upd models.ProfileUpdate) (*models.Profile, error) {
	query := `
		UPDATE profiles
		SET username = $2, display_name = $3, bio = $4, updated_at = now()
		WHERE id = $1
		RETURNING ` + profileColumns
	return scanProfile(r.db.QueryRowContext(ctx, query, id, upd.Username, upd.DisplayName, upd.Bio))
}

func (r *PostgresRepository) SetAvatar(ctx context.Context, id string, path *string) (*string, error) {
	query := `
		UPDATE profiles p
		SET avatar_path = $2, updated_at = now()
		FROM (SELECT avatar_path FROM profiles WHERE id = $1 FOR UPDATE) old
		WHERE p.id = $1
		RETURNING old.avatar_path
	`
	var prev *string
	if err := r.db.QueryRowContext(ctx, query, id, path).Scan(&prev); err != nil {
		return nil, dbx.TranslateError(err)
	}
	return prev, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return dbx.TranslateError(err)
	}
	return dbx.RequireAffected(res)
}

func (r *PostgresRepository) ObjectPaths(ctx context.Context, id string) ([]string, error) {
	query := `
		SELECT avatar_path FROM profiles WHERE id = $1 AND avatar_path IS NOT NULL
		UNION
		SELECT hero_image_path FROM vehicles WHERE profile_id = $1 AND hero_image_path IS NOT NULL
		UNION
		SELECT storage_path FROM images WHERE profile_id = $1
	`
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, dbx.TranslateError(err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, dbx.TranslateError(err)
		}
		paths = append(paths, p)
	}
	return paths, dbx.TranslateError(rows.Err())
}

func (r *PostgresRepository) GetPublicByUsername(ctx context.Context, username string) (*models.Profile, error) {
	query := `
		SELECT id, username, display_name, bio, avatar_path
		FROM public_profiles
		WHERE lower(username) = lower($1)
	`
	p := &models.Profile{}
	if err := r.db.QueryRowContext(ctx, query, username).Scan(&p.ID, &p.Username, &p.DisplayName, &p.Bio, &p.AvatarPath); err != nil {
		return nil, dbx.TranslateError(err)
	}
	return p, nil
}
