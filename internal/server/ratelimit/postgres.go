package ratelimit

import (
	"context"
	"math/rand/v2"

	"github.com/dmitrijs2005/buildbio/internal/logging"
	"github.com/dmitrijs2005/buildbio/internal/server/models"
	"github.com/dmitrijs2005/buildbio/internal/server/observability"
)

// BucketRepository is the persistence the Postgres store needs.
type BucketRepository interface {
	// Consume upserts the bucket for the current window in one statement
	// and returns the stored row with the database clock.
	Consume(ctx context.Context, key string, windowSeconds int) (*models.RateLimitBucket, error)
	// DeleteExpired removes up to limit buckets whose expires_at has passed.
	DeleteExpired(ctx context.Context, limit int) (int64, error)
}

// PostgresStore counts in the rate_limit_buckets table. Expired rows are
// removed opportunistically: each consume runs a bounded cleanup with
// probability CleanupProbability.
type PostgresStore struct {
	repo        BucketRepository
	probability float64
	batch       int
	logger      logging.Logger
	roll        func() float64
}

func NewPostgresStore(repo BucketRepository, probability float64, batch int, l logging.Logger) *PostgresStore {
	return &PostgresStore{
		repo:        repo,
		probability: probability,
		batch:       batch,
		logger:      l.With("module", "ratelimit_postgres"),
		roll:        rand.Float64,
	}
}

func (s *PostgresStore) Consume(ctx context.Context, key string, maxRequests, windowSeconds int) (Result, error) {
	maxRequests, windowSeconds = Clamp(maxRequests, windowSeconds)

	b, err := s.repo.Consume(ctx, key, windowSeconds)
	if err != nil {
		observability.RateLimitStoreErrors.WithLabelValues("postgres").Inc()
		return Result{}, err
	}

	s.maybeCleanup(ctx)

	return NewResult(b.RequestCount, maxRequests, b.WindowEndsAt, b.Now), nil
}

func (s *PostgresStore) maybeCleanup(ctx context.Context) {
	if s.probability <= 0 || s.batch <= 0 || s.roll() >= s.probability {
		return
	}
	n, err := s.repo.DeleteExpired(ctx, s.batch)
	if err != nil {
		s.logger.Warn(ctx, "rate limit cleanup failed", "error", err)
		return
	}
	if n > 0 {
		observability.RateLimitCleanupDeleted.Add(float64(n))
		s.logger.Debug(ctx, "rate limit cleanup", "deleted", n)
	}
}
