package httpapi

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/buildbio/internal/common"
	"github.com/dmitrijs2005/buildbio/internal/server/observability"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

type localsKey string

const callerKey localsKey = "caller"

// caller is the authenticated profile id set by authRequired.
func caller(c *fiber.Ctx) string {
	id, _ := c.Locals(callerKey).(string)
	return id
}

// authRequired resolves the bearer access token to the caller's id.
func (s *HTTPServer) authRequired(c *fiber.Ctx) error {
	token, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if !ok || token == "" {
		return common.ErrorUnauthorized
	}
	id, err := s.svc.Auth.AccountID(token)
	if err != nil {
		return common.ErrorUnauthorized
	}
	c.Locals(callerKey, id)
	return c.Next()
}

// tracing starts a span per request. Spans outlive the request, so every
// string taken from the fiber context is copied out of its reused buffers.
func tracing() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		carrier := propagation.HeaderCarrier{}
		for k, vs := range c.GetReqHeaders() {
			for _, v := range vs {
				carrier.Set(utils.CopyString(k), utils.CopyString(v))
			}
		}
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), carrier)

		method, path := utils.CopyString(c.Method()), utils.CopyString(c.Path())
		ctx, span := observability.StartSpan(ctx, method+" "+path,
			attribute.String("http.method", method),
			attribute.String("http.path", path),
		)
		defer func() {
			span.SetAttributes(attribute.Int("http.status_code", c.Response().StatusCode()))
			observability.EndSpan(span, err)
		}()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// requestLogger writes one line per request. Errors are rendered here
// through the app's error handler so the logged status is the one sent.
func (s *HTTPServer) requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		rid, _ := c.Locals("requestid").(string)

		if err := c.Next(); err != nil {
			if herr := s.errorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		s.logger.Info(c.UserContext(), "request",
			"request_id", rid,
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"latency", time.Since(start),
		)
		return nil
	}
}
