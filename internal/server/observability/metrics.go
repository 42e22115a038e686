// Package observability holds the Prometheus collectors and the
// OpenTelemetry tracer used by the server.
package observability

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	// RateLimitDecisions counts limiter verdicts per target.
	RateLimitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "buildbio_rate_limit_decisions_total",
		Help: "Rate limit decisions by action, scope and outcome",
	}, []string{"action", "scope", "outcome"})

	// RateLimitStoreErrors counts failed consume calls by backend.
	RateLimitStoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "buildbio_rate_limit_store_errors_total",
		Help: "Rate limit store failures by backend",
	}, []string{"backend"})

	// RateLimitCleanupDeleted counts expired buckets removed by cleanup.
	RateLimitCleanupDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "buildbio_rate_limit_cleanup_deleted_total",
		Help: "Expired rate limit buckets deleted by opportunistic cleanup",
	})

	// ReorderOutcomes counts reorder results by entity kind.
	ReorderOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "buildbio_reorder_outcomes_total",
		Help: "Reorder outcomes by entity kind",
	}, []string{"kind", "outcome"})

	// AuthzDenials counts denied authorization checks.
	AuthzDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "buildbio_authz_denials_total",
		Help: "Authorization denials by entity kind and predicate",
	}, []string{"kind", "predicate"})

	// RedisErrors counts Redis command failures other than redis.Nil.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "buildbio_redis_errors_total",
		Help: "Redis command errors by command",
	}, []string{"command"})
)

// RedisMetricsHook feeds RedisErrors. Install it with client.AddHook.
type RedisMetricsHook struct{}

func (RedisMetricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (RedisMetricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			RedisErrors.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (RedisMetricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			RedisErrors.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}
