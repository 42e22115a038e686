// Package ratelimits stores fixed-window counters in rate_limit_buckets.
// The table is never exposed to the request roles; the store runs on the
// service connection.
package ratelimits

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

// Consume counts one request in a single statement. The window start is
// computed from the database clock, so concurrent callers on one key always
// agree on it; a stale row is reset to a count of 1 in place.
func (r *PostgresRepository) Consume(ctx context.Context, key string, windowSeconds int) (*models.RateLimitBucket, error) {
	query := `
		WITH clock AS (
			SELECT to_timestamp(floor(extract(epoch FROM now()) / $2::integer) * $2::integer) AS started
		)
		INSERT INTO rate_limit_buckets AS b
			(bucket_key, window_started_at, window_seconds, request_count, window_ends_at, expires_at)
		SELECT $1, c.started, $2::integer, 1,
			c.started + $2::integer * interval '1 second',
			c.started + ($2::integer + GREATEST($2::integer, 600)) * interval '1 second'
		FROM clock c
		ON CONFLICT (bucket_key) DO UPDATE SET
			request_count = CASE
				WHEN b.window_started_at = EXCLUDED.window_started_at
					AND b.window_seconds = EXCLUDED.window_seconds
				THEN b.request_count + 1
				ELSE 1
			END,
			window_started_at = EXCLUDED.window_started_at,
			window_seconds = EXCLUDED.window_seconds,
			window_ends_at = EXCLUDED.window_ends_at,
			expires_at = EXCLUDED.expires_at
		RETURNING bucket_key, window_started_at, window_seconds, request_count, window_ends_at, expires_at, now()
	`
	b := &models.RateLimitBucket{}
	err := r.db.QueryRowContext(ctx, query, key, windowSeconds).Scan(
		&b.Key, &b.WindowStartedAt, &b.WindowSeconds, &b.RequestCount, &b.WindowEndsAt, &b.ExpiresAt, &b.Now,
	)
	if err != nil {
		return nil, dbx.TranslateError(err)
	}
	return b, nil
}

// DeleteExpired removes at most limit expired buckets, skipping rows another
// cleanup already holds.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, limit int) (int64, error) {
	query := `
		DELETE FROM rate_limit_buckets
		WHERE bucket_key IN (
			SELECT bucket_key
			FROM rate_limit_buckets
			WHERE expires_at < now()
			ORDER BY expires_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
	`
	res, err := r.db.ExecContext(ctx, query, limit)
	if err != nil {
		return 0, dbx.TranslateError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, dbx.TranslateError(err)
	}
	return n, nil
}
