package models

import "time"

// RateLimitBucket is one fixed-window counter row.
type RateLimitBucket struct {
	Key             string
	WindowStartedAt time.Time
	WindowSeconds   int
	RequestCount    int
	WindowEndsAt    time.Time
	ExpiresAt       time.Time
	// Now is the store clock at the time the row was written.
	Now time.Time
}
