package ratelimit

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/buildbio/internal/common"
	"github.com/dmitrijs2005/buildbio/internal/logging"
	"github.com/dmitrijs2005/buildbio/internal/server/observability"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"
)

// Rule is a quota: MaxRequests per Window.
type Rule struct {
	MaxRequests int
	Window      time.Duration
}

// Target is one dimension a request is counted against, e.g. the user id
// or the client IP. HashIdentifier is set for identifiers derived from user
// supplied text (emails, cookies) so they never reach the store in clear.
type Target struct {
	Scope          string
	Identifier     string
	Rule           Rule
	HashIdentifier bool
}

// ExceededError is returned when at least one target is over its quota.
// RetryAfter is the longest wait among the blocked targets.
type ExceededError struct {
	RetryAfter int
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %ds", e.RetryAfter)
}

func (e *ExceededError) Is(target error) bool {
	return target == common.ErrRateLimited
}

const (
	maxIdentifierLen = 128
	emptyIdentifier  = "unknown"
)

// Limiter maps actions and targets onto store keys.
type Limiter struct {
	store   Store
	hashKey []byte
	logger  logging.Logger
}

func NewLimiter(store Store, hashKey string, l logging.Logger) *Limiter {
	return &Limiter{
		store:   store,
		hashKey: []byte(hashKey),
		logger:  l.With("module", "ratelimit"),
	}
}

// Enforce consumes one request from every target in parallel.
//
// It returns *ExceededError when any target is blocked, and an error
// wrapping common.ErrRateLimiterUnavailable when the store failed and no
// target was blocked. Callers decide whether to fail open on the latter.
func (l *Limiter) Enforce(ctx context.Context, action string, targets ...Target) (err error) {
	ctx, span := observability.StartSpan(ctx, "ratelimit.Enforce",
		attribute.String("ratelimit.action", action),
		attribute.Int("ratelimit.targets", len(targets)),
	)
	defer func() { observability.EndSpan(span, err) }()

	results := make([]Result, len(targets))
	errs := make([]error, len(targets))

	var g errgroup.Group
	for i, t := range targets {
		g.Go(func() error {
			key := l.Key(action, t)
			window := max(int(t.Rule.Window/time.Second), 1)
			results[i], errs[i] = l.store.Consume(ctx, key, t.Rule.MaxRequests, window)
			return nil
		})
	}
	_ = g.Wait()

	retryAfter := 0
	var storeErr error
	for i, t := range targets {
		switch {
		case errs[i] != nil:
			storeErr = errs[i]
			observability.RateLimitDecisions.WithLabelValues(action, t.Scope, "error").Inc()
		case !results[i].Allowed:
			retryAfter = max(retryAfter, results[i].RetryAfter)
			observability.RateLimitDecisions.WithLabelValues(action, t.Scope, "blocked").Inc()
		default:
			observability.RateLimitDecisions.WithLabelValues(action, t.Scope, "allowed").Inc()
		}
	}

	if retryAfter > 0 {
		l.logger.Info(ctx, "rate limit exceeded", "action", action, "retry_after", retryAfter)
		return &ExceededError{RetryAfter: retryAfter}
	}
	if storeErr != nil {
		l.logger.Error(ctx, "rate limit store failed", "action", action, "error", storeErr)
		return fmt.Errorf("%w: %v", common.ErrRateLimiterUnavailable, storeErr)
	}
	return nil
}

// Key composes rl:{action}:{scope}:{identifier}.
func (l *Limiter) Key(action string, t Target) string {
	id := NormalizeIdentifier(t.Identifier)
	if t.HashIdentifier {
		id = l.hash(id)
	}
	return "rl:" + NormalizeIdentifier(action) + ":" + NormalizeIdentifier(t.Scope) + ":" + id
}

func (l *Limiter) hash(id string) string {
	h, err := blake2b.New256(l.hashKey)
	if err != nil {
		// only possible with a key longer than 64 bytes
		sum := blake2b.Sum256(append(append([]byte{}, l.hashKey...), id...))
		return hex.EncodeToString(sum[:])
	}
	h.Write([]byte(id))
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizeIdentifier lowercases and trims s, drops characters outside
// [a-z0-9._:@-] and truncates to 128 bytes.
func NormalizeIdentifier(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(min(len(s), maxIdentifierLen))
	for i := 0; i < len(s) && b.Len() < maxIdentifierLen; i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') ||
			c == '.' || c == '_' || c == ':' || c == '@' || c == '-' {
			b.WriteByte(c)
		}
	}
	if b.Len() == 0 {
		return emptyIdentifier
	}
	return b.String()
}
