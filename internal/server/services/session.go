// Package services holds the server's business logic. Every entity
// operation runs inside a transaction opened with the caller's row-level
// security identity, and checks the authorization guard before touching
// entity repositories.
package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/buildbio/internal/common"
	"github.com/dmitrijs2005/buildbio/internal/dbx"
	"github.com/dmitrijs2005/buildbio/internal/logging"
	"github.com/dmitrijs2005/buildbio/internal/server/authz"
	"github.com/dmitrijs2005/buildbio/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// ObjectStore is the object storage the services upload to and link from.
type ObjectStore interface {
	Bucket() string
	Put(ctx context.Context, path, contentType string, data []byte) error
	Remove(ctx context.Context, paths ...string) error
	// URL is the address a reader fetches from: public or signed.
	URL(ctx context.Context, path string) (string, error)
	SignURL(ctx context.Context, path string) (string, error)
}

// session opens identity-scoped transactions.
type session struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	store  ObjectStore
	logger logging.Logger
}

func newSession(db *sql.DB, repos repomanager.RepositoryManager, store ObjectStore, l logging.Logger) session {
	return session{db: db, repos: repos, store: store, logger: l}
}

// run executes fn in a transaction as caller ("" for anonymous) with a guard
// reading through the same transaction.
func (s *session) run(ctx context.Context, caller string, fn func(ctx context.Context, tx dbx.DBTX, guard *authz.Guard) error) error {
	return dbx.WithIdentityTx(ctx, s.db, caller, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, tx, authz.NewGuard(s.repos.Ownership(tx)))
	})
}

// removeObjects deletes stored objects after their rows are gone. Failures
// leave orphans behind and are only logged.
func (s *session) removeObjects(ctx context.Context, paths ...string) {
	if len(paths) == 0 {
		return
	}
	if err := s.store.Remove(ctx, paths...); err != nil {
		s.logger.Warn(ctx, "object removal failed", "paths", paths, "error", err)
	}
}

// requireIDs rejects malformed identifiers up front. They can never name a
// row, so they read as not found.
func requireIDs(ids ...string) error {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return common.ErrorNotFound
		}
	}
	return nil
}
