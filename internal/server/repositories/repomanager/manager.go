// Package repomanager vends repositories bound to a DBTX, so a service can
// run several of them inside one transaction, and runs the schema
// migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/buildbio/internal/dbx"
	"github.com/dmitrijs2005/buildbio/internal/server/ratelimit"
	"github.com/dmitrijs2005/buildbio/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/buildbio/internal/server/repositories/images"
	"github.com/dmitrijs2005/buildbio/internal/server/repositories/mods"
	"github.com/dmitrijs2005/buildbio/internal/server/repositories/ownership"
	"github.com/dmitrijs2005/buildbio/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/buildbio/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/buildbio/internal/server/repositories/vehicles"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error

	Accounts(db dbx.DBTX) accounts.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	RateLimits(db dbx.DBTX) ratelimit.BucketRepository

	// Entity repositories. Hand them a transaction opened with
	// dbx.WithIdentityTx so row-level security applies.
	Profiles(db dbx.DBTX) profiles.Repository
	Vehicles(db dbx.DBTX) vehicles.Repository
	Mods(db dbx.DBTX) mods.Repository
	Images(db dbx.DBTX) images.Repository
	Ownership(db dbx.DBTX) ownership.Repository
}
