package accounts

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

func (r *PostgresRepository) Create(ctx context.Context, email string, passwordHash []byte) (*models.Account, error) {
	query := `
		INSERT INTO accounts (email, password_hash)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	a := &models.Account{Email: email, PasswordHash: passwordHash}
	if err := r.db.QueryRowContext(ctx, query, email, passwordHash).Scan(&a.ID, &a.CreatedAt); err != nil {
		return nil, dbx.TranslateError(err)
	}
	return a, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `
		SELECT id, email, password_hash, created_at
		FROM accounts
		WHERE lower(email) = lower($1)
	`
	a := &models.Account{}
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt); err != nil {
		return nil, dbx.TranslateError(err)
	}
	return a, nil
}

// Delete removes the account; the profile tree goes with it.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return dbx.TranslateError(err)
	}
	return dbx.RequireAffected(res)
}
