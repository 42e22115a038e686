package httpapi

import (
	"errors"
	"strconv"

	"github.com/dmitrijs2005/buildbio/internal/common"
	"github.com/dmitrijs2005/buildbio/internal/server/ratelimit"
	"github.com/gofiber/fiber/v2"
)

type errorBody struct {
	Error string `json:"error"`
}

// errorHandler maps service errors onto statuses with generic messages.
// Details are logged, never sent.
func (s *HTTPServer) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(errorBody{Error: fe.Message})
	}

	var exceeded *ratelimit.ExceededError
	if errors.As(err, &exceeded) {
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(exceeded.RetryAfter))
		return c.Status(fiber.StatusTooManyRequests).JSON(errorBody{Error: "too many requests"})
	}

	status, msg := fiber.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, common.ErrorNotFound):
		status, msg = fiber.StatusNotFound, "not found"
	case errors.Is(err, common.ErrorValidation):
		status, msg = fiber.StatusBadRequest, "invalid request"
	case errors.Is(err, common.ErrorAlreadyExists):
		status, msg = fiber.StatusConflict, "already exists"
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		status, msg = fiber.StatusUnauthorized, "unauthorized"
	case errors.Is(err, common.ErrRateLimiterUnavailable):
		status, msg = fiber.StatusServiceUnavailable, "service unavailable"
	default:
		s.logger.Error(c.UserContext(), "request failed", "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(errorBody{Error: msg})
}
