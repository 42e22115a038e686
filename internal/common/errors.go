// Package common defines shared constants and sentinel errors used across
// the buildbio server layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")
	ErrorValidation    = errors.New("validation error")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Rate limiting. ErrRateLimited is an expected rejection; the caller may
	// retry later. ErrRateLimiterUnavailable is an infrastructure fault.
	ErrRateLimited            = errors.New("rate limit exceeded")
	ErrRateLimiterUnavailable = errors.New("rate limiter unavailable")
)
