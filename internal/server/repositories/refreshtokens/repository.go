// Package refreshtokens declares the server-side repository contract for
// managing refresh tokens in persistent storage.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/buildbio/internal/server/models"
)

// Repository defines operations for issuing, retrieving, and revoking refresh tokens.
type Repository interface {
	// Create stores a new refresh token for accountID with an expiry of now+validity.
	Create(ctx context.Context, accountID string, token string, validity time.Duration) error

	// Find looks up a refresh token by its opaque token string and returns its metadata.
	// Implementations should return common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a refresh token by its token string and reports whether
	// a row was removed.
	Delete(ctx context.Context, token string) (bool, error)

	// DeleteByAccount revokes every token of an account.
	DeleteByAccount(ctx context.Context, accountID string) error
}
