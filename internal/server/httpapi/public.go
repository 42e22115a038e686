package httpapi

import "github.com/gofiber/fiber/v2"

func (s *HTTPServer) publicProfile(c *fiber.Ctx) error {
	p, err := s.svc.Public.Profile(c.UserContext(), c.Params("username"))
	if err != nil {
		return err
	}
	return c.JSON(p)
}

func (s *HTTPServer) publicBuild(c *fiber.Ctx) error {
	b, err := s.svc.Public.Build(c.UserContext(), c.Params("username"), c.Params("vehicleID"))
	if err != nil {
		return err
	}
	return c.JSON(b)
}

// publicMedia redirects to the object iff a public row references it.
func (s *HTTPServer) publicMedia(c *fiber.Ctx) error {
	u, err := s.svc.Public.MediaURL(c.UserContext(), c.Params("*"))
	if err != nil {
		return err
	}
	return c.Redirect(u, fiber.StatusFound)
}
