package ratelimit

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// sweepScanFactor bounds how many map entries one sweep inspects, relative
// to the batch it may delete.
const sweepScanFactor = 4

type memoryBucket struct {
	started   time.Time
	window    int
	count     int
	endsAt    time.Time
	expiresAt time.Time
}

// MemoryStore keeps buckets in process. It is meant for tests and single
// instance development; counts are not shared between processes. Expired
// buckets are swept like the Postgres store: with the given probability per
// consume, at most batch of them.
type MemoryStore struct {
	mu          sync.Mutex
	buckets     map[string]*memoryBucket
	probability float64
	batch       int
	now         func() time.Time
	roll        func() float64
}

func NewMemoryStore(probability float64, batch int) *MemoryStore {
	return &MemoryStore{
		buckets:     make(map[string]*memoryBucket),
		probability: probability,
		batch:       batch,
		now:         time.Now,
		roll:        rand.Float64,
	}
}

func (s *MemoryStore) Consume(_ context.Context, key string, maxRequests, windowSeconds int) (Result, error) {
	maxRequests, windowSeconds = Clamp(maxRequests, windowSeconds)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	start := WindowStart(now, windowSeconds)

	b, ok := s.buckets[key]
	if ok && b.started.Equal(start) && b.window == windowSeconds {
		b.count++
	} else {
		ends := start.Add(time.Duration(windowSeconds) * time.Second)
		b = &memoryBucket{
			started:   start,
			window:    windowSeconds,
			count:     1,
			endsAt:    ends,
			expiresAt: ExpiresAt(ends, windowSeconds),
		}
		s.buckets[key] = b
	}

	if s.probability > 0 && s.batch > 0 && s.roll() < s.probability {
		s.sweepLocked(now)
	}
	return NewResult(b.count, maxRequests, b.endsAt, now), nil
}

// sweepLocked samples at most sweepScanFactor*batch buckets in map order and
// deletes the expired ones among them, never more than batch.
func (s *MemoryStore) sweepLocked(now time.Time) int {
	scanned, deleted := 0, 0
	for k, b := range s.buckets {
		if scanned >= s.batch*sweepScanFactor || deleted >= s.batch {
			break
		}
		scanned++
		if b.expiresAt.Before(now) {
			delete(s.buckets, k)
			deleted++
		}
	}
	return deleted
}
