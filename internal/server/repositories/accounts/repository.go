// Package accounts stores the credentials of the built-in identity provider.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/buildbio/internal/server/models"
)

type Repository interface {
	// Create inserts an account. A case-insensitive duplicate email yields
	// common.ErrorAlreadyExists.
	Create(ctx context.Context, email string, passwordHash []byte) (*models.Account, error)
	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	Delete(ctx context.Context, id string) error
}
