package httpapi

import (
	"context"

	"github.com/dmitrijs2005/buildbio/internal/common"
	"github.com/dmitrijs2005/buildbio/internal/server/ratelimit"
	"github.com/dmitrijs2005/buildbio/internal/server/services"
	"github.com/gofiber/fiber/v2"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *HTTPServer) signUp(c *fiber.Ctx) error {
	pair, err := s.authenticate(c, actionSignUp, s.svc.Auth.SignUp)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(pair)
}

func (s *HTTPServer) signIn(c *fiber.Ctx) error {
	pair, err := s.authenticate(c, actionSignIn, s.svc.Auth.SignIn)
	if err != nil {
		return err
	}
	return c.JSON(pair)
}

// authenticate limits by client IP and, for well-formed addresses, by the
// hashed email. Both fail closed.
func (s *HTTPServer) authenticate(c *fiber.Ctx, action string,
	fn func(ctx context.Context, email, password string) (*services.TokenPair, error)) (*services.TokenPair, error) {
	var req credentials
	if err := c.BodyParser(&req); err != nil {
		return nil, common.ErrorValidation
	}

	rl := s.cfg.RateLimits
	targets := []ratelimit.Target{s.ipTarget(c, rl.AuthIP)}
	if email, err := services.NormalizeEmail(req.Email); err == nil {
		targets = append(targets, ratelimit.Target{Scope: "email", Identifier: email, Rule: rule(rl.AuthEmail), HashIdentifier: true})
	}
	if err := s.enforce(c, action, true, targets...); err != nil {
		return nil, err
	}

	return fn(c.UserContext(), req.Email, req.Password)
}

func (s *HTTPServer) refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return common.ErrorValidation
	}
	if err := s.enforce(c, actionRefresh, true, s.ipTarget(c, s.cfg.RateLimits.AuthIP)); err != nil {
		return err
	}
	pair, err := s.svc.Auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(pair)
}
