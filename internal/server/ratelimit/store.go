// Package ratelimit implements fixed-window request counting: the Store
// backends that atomically consume from a keyed bucket, and the Limiter
// policy layer that composes several buckets per request.
package ratelimit

import (
	"context"
	"math"
	"time"
)

// Bounds applied to every consume call.
const (
	MinWindowSeconds = 1
	MaxWindowSeconds = 86400
	MinMaxRequests   = 1
	MaxMaxRequests   = 100000

	// minExpiryGrace keeps a bucket around after its window ends.
	minExpiryGrace = 600
)

// Result of one consume call.
type Result struct {
	Allowed      bool
	Remaining    int
	RetryAfter   int // seconds, 0 when allowed
	WindowEndsAt time.Time
}

// Store atomically counts one request against key in the current fixed
// window of windowSeconds and reports whether maxRequests is exceeded.
// Implementations must be safe for concurrent callers sharing a key.
type Store interface {
	Consume(ctx context.Context, key string, maxRequests, windowSeconds int) (Result, error)
}

// Clamp bounds the caller supplied rule.
func Clamp(maxRequests, windowSeconds int) (int, int) {
	return clampInt(maxRequests, MinMaxRequests, MaxMaxRequests),
		clampInt(windowSeconds, MinWindowSeconds, MaxWindowSeconds)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// WindowStart aligns now to the start of its window.
func WindowStart(now time.Time, windowSeconds int) time.Time {
	epoch := now.Unix()
	w := int64(windowSeconds)
	return time.Unix(epoch-epoch%w, 0).UTC()
}

// ExpiresAt is the end of the window plus a grace of at least ten minutes.
func ExpiresAt(windowEndsAt time.Time, windowSeconds int) time.Time {
	return windowEndsAt.Add(time.Duration(max(windowSeconds, minExpiryGrace)) * time.Second)
}

// NewResult derives the caller facing result from the stored count.
func NewResult(count, maxRequests int, windowEndsAt, now time.Time) Result {
	r := Result{
		Allowed:      count <= maxRequests,
		Remaining:    max(maxRequests-count, 0),
		WindowEndsAt: windowEndsAt,
	}
	if !r.Allowed {
		r.RetryAfter = max(1, int(math.Ceil(windowEndsAt.Sub(now).Seconds())))
	}
	return r
}
