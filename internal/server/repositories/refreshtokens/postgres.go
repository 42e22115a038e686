// Package refreshtokens provides a PostgreSQL-backed repository for managing
// refresh tokens used in the server's authentication flow.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/buildbio/internal/dbx"
	"github.com/dmitrijs2005/buildbio/internal/server/models"
)

// PostgresRepository implements CRUD operations for refresh tokens over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new refresh token for accountID with an expiry time of now+validity.
func (r *PostgresRepository) Create(ctx context.Context, accountID string, token string, validity time.Duration) error {
	query := `
		INSERT INTO refresh_tokens (account_id, token, expires_at)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.ExecContext(ctx, query, accountID, token, time.Now().Add(validity)); err != nil {
		return dbx.TranslateError(err)
	}
	return nil
}

// Find returns the refresh token row for the given token string.
// If not found, it returns common.ErrorNotFound.
func (r *PostgresRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	query := `
		SELECT id, account_id, expires_at, created_at
		FROM refresh_tokens
		WHERE token = $1
	`
	rt := &models.RefreshToken{Token: token}
	if err := r.db.QueryRowContext(ctx, query, token).Scan(&rt.ID, &rt.AccountID, &rt.Expires, &rt.CreatedAt); err != nil {
		return nil, dbx.TranslateError(err)
	}
	return rt, nil
}

// Delete removes a refresh token by its token string.
func (r *PostgresRepository) Delete(ctx context.Context, token string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, token)
	if err != nil {
		return false, dbx.TranslateError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, dbx.TranslateError(err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) DeleteByAccount(ctx context.Context, accountID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE account_id = $1`, accountID); err != nil {
		return dbx.TranslateError(err)
	}
	return nil
}
