package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dmitrijs2005/buildbio/internal/dbx"
	"github.com/dmitrijs2005/buildbio/internal/server/migrations"
	"github.com/dmitrijs2005/buildbio/internal/server/ratelimit"
	"github.com/dmitrijs2005/buildbio/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/buildbio/internal/server/repositories/images"
	"github.com/dmitrijs2005/buildbio/internal/server/repositories/mods"
	"github.com/dmitrijs2005/buildbio/internal/server/repositories/ownership"
	"github.com/dmitrijs2005/buildbio/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/buildbio/internal/server/repositories/ratelimits"
	"github.com/dmitrijs2005/buildbio/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/buildbio/internal/server/repositories/vehicles"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories.
type PostgresRepositoryManager struct{}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) Accounts(db dbx.DBTX) accounts.Repository {
	return accounts.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RateLimits(db dbx.DBTX) ratelimit.BucketRepository {
	return ratelimits.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Profiles(db dbx.DBTX) profiles.Repository {
	return profiles.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Vehicles(db dbx.DBTX) vehicles.Repository {
	return vehicles.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Mods(db dbx.DBTX) mods.Repository {
	return mods.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Images(db dbx.DBTX) images.Repository {
	return images.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Ownership(db dbx.DBTX) ownership.Repository {
	return ownership.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// pingDB is a seam for testing OpenPostgres.
var pingDB = func(ctx context.Context, db *sql.DB) error {
	return db.PingContext(ctx)
}

// OpenPostgres opens a pgx backed pool and waits, with exponential backoff
// for at most maxWait, until the server answers.
func OpenPostgres(ctx context.Context, dsn string, maxWait time.Duration) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = maxWait
	if err := backoff.Retry(func() error { return pingDB(ctx, db) }, backoff.WithContext(bo, ctx)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return db, nil
}
