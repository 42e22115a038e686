package httpapi

import (
	"errors"

	"github.com/dmitrijs2005/buildbio/internal/common"
	"github.com/dmitrijs2005/buildbio/internal/server/config"
	"github.com/dmitrijs2005/buildbio/internal/server/ratelimit"
	"github.com/gofiber/fiber/v2"
)

// Limiter actions.
const (
	actionSignUp  = "signup"
	actionSignIn  = "signin"
	actionRefresh = "refresh"
	actionWrite   = "api_write"
	actionUpload  = "upload"
	actionPublic  = "public_read"
)

func rule(r config.RateRule) ratelimit.Rule {
	return ratelimit.Rule{MaxRequests: r.MaxRequests, Window: r.Window}
}

// enforce consumes from every target. A store failure rejects the request
// when failClosed is set and is logged and let through otherwise.
func (s *HTTPServer) enforce(c *fiber.Ctx, action string, failClosed bool, targets ...ratelimit.Target) error {
	err := s.limiter.Enforce(c.UserContext(), action, targets...)
	if err == nil || !errors.Is(err, common.ErrRateLimiterUnavailable) || failClosed {
		return err
	}
	s.logger.Warn(c.UserContext(), "rate limiter unavailable, request allowed", "action", action, "error", err)
	return nil
}

func (s *HTTPServer) ipTarget(c *fiber.Ctx, r config.RateRule) ratelimit.Target {
	return ratelimit.Target{Scope: "ip", Identifier: c.IP(), Rule: rule(r)}
}

func userTarget(c *fiber.Ctx, r config.RateRule) ratelimit.Target {
	return ratelimit.Target{Scope: "user", Identifier: caller(c), Rule: rule(r)}
}

// mutationLimit counts every non-read request against both the caller and
// the client IP.
func (s *HTTPServer) mutationLimit() fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}
		rl := s.cfg.RateLimits
		if err := s.enforce(c, actionWrite, false, userTarget(c, rl.MutationUser), s.ipTarget(c, rl.MutationIP)); err != nil {
			return err
		}
		return c.Next()
	}
}

func (s *HTTPServer) uploadLimit() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := s.enforce(c, actionUpload, false, userTarget(c, s.cfg.RateLimits.UploadUser)); err != nil {
			return err
		}
		return c.Next()
	}
}

func (s *HTTPServer) publicLimit() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := s.enforce(c, actionPublic, false, s.ipTarget(c, s.cfg.RateLimits.PublicIP)); err != nil {
			return err
		}
		return c.Next()
	}
}
