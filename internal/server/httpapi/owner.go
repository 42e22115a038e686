package httpapi

import (
	"fmt"
	"io"

	"github.com/dmitrijs2005/buildbio/internal/common"
	"github.com/dmitrijs2005/buildbio/internal/server/authz"
	"github.com/dmitrijs2005/buildbio/internal/server/models"
	"github.com/dmitrijs2005/buildbio/internal/server/services"
	"github.com/gofiber/fiber/v2"
)

type visibilityRequest struct {
	IsPublic bool `json:"is_public"`
}

type reorderRequest struct {
	Direction string `json:"direction"`
}

type reorderResponse struct {
	Outcome models.ReorderOutcome `json:"outcome"`
}

type captionRequest struct {
	Caption string `json:"caption"`
}

type urlResponse struct {
	URL string `json:"url"`
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	return nil
}

// readUpload takes the "file" part of a multipart form.
func (s *HTTPServer) readUpload(c *fiber.Ctx) (services.Upload, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return services.Upload{}, fmt.Errorf("%w: missing file", common.ErrorValidation)
	}
	if fh.Size > s.cfg.MaxUploadBytes {
		return services.Upload{}, fiber.ErrRequestEntityTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return services.Upload{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return services.Upload{}, err
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return services.Upload{}, fiber.ErrRequestEntityTooLarge
	}
	return services.Upload{ContentType: fh.Header.Get(fiber.HeaderContentType), Data: data}, nil
}

func parseDirection(c *fiber.Ctx) (models.Direction, error) {
	var req reorderRequest
	if err := parseBody(c, &req); err != nil {
		return "", err
	}
	return models.ParseDirection(req.Direction)
}

// --- profile ---

func (s *HTTPServer) getProfile(c *fiber.Ctx) error {
	p, err := s.svc.Profiles.Get(c.UserContext(), caller(c))
	if err != nil {
		return err
	}
	return c.JSON(p)
}

func (s *HTTPServer) updateProfile(c *fiber.Ctx) error {
	var upd models.ProfileUpdate
	if err := parseBody(c, &upd); err != nil {
		return err
	}
	p, err := s.svc.Profiles.Update(c.UserContext(), caller(c), upd)
	if err != nil {
		return err
	}
	return c.JSON(p)
}

func (s *HTTPServer) deleteProfile(c *fiber.Ctx) error {
	if err := s.svc.Profiles.Delete(c.UserContext(), caller(c)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *HTTPServer) setAvatar(c *fiber.Ctx) error {
	up, err := s.readUpload(c)
	if err != nil {
		return err
	}
	p, err := s.svc.Profiles.SetAvatar(c.UserContext(), caller(c), up)
	if err != nil {
		return err
	}
	return c.JSON(p)
}

// --- vehicles ---

func (s *HTTPServer) listVehicles(c *fiber.Ctx) error {
	vs, err := s.svc.Vehicles.List(c.UserContext(), caller(c))
	if err != nil {
		return err
	}
	return c.JSON(vs)
}

func (s *HTTPServer) createVehicle(c *fiber.Ctx) error {
	var in models.VehicleInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	v, err := s.svc.Vehicles.Create(c.UserContext(), caller(c), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(v)
}

func (s *HTTPServer) getVehicle(c *fiber.Ctx) error {
	v, err := s.svc.Vehicles.Get(c.UserContext(), caller(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(v)
}

func (s *HTTPServer) updateVehicle(c *fiber.Ctx) error {
	var in models.VehicleInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	v, err := s.svc.Vehicles.Update(c.UserContext(), caller(c), c.Params("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(v)
}

func (s *HTTPServer) deleteVehicle(c *fiber.Ctx) error {
	if err := s.svc.Vehicles.Delete(c.UserContext(), caller(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *HTTPServer) setVehicleVisibility(c *fiber.Ctx) error {
	var req visibilityRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	v, err := s.svc.Vehicles.SetPublic(c.UserContext(), caller(c), c.Params("id"), req.IsPublic)
	if err != nil {
		return err
	}
	return c.JSON(v)
}

func (s *HTTPServer) setHeroImage(c *fiber.Ctx) error {
	up, err := s.readUpload(c)
	if err != nil {
		return err
	}
	v, err := s.svc.Vehicles.SetHeroImage(c.UserContext(), caller(c), c.Params("id"), up)
	if err != nil {
		return err
	}
	return c.JSON(v)
}

// reorderVehicle always answers 200; not_found is an outcome, not an error.
func (s *HTTPServer) reorderVehicle(c *fiber.Ctx) error {
	dir, err := parseDirection(c)
	if err != nil {
		return err
	}
	out, err := s.svc.Vehicles.Reorder(c.UserContext(), caller(c), c.Params("id"), dir)
	if err != nil {
		return err
	}
	return c.JSON(reorderResponse{Outcome: out})
}

// --- mods ---

func (s *HTTPServer) listMods(c *fiber.Ctx) error {
	ms, err := s.svc.Mods.List(c.UserContext(), caller(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(ms)
}

func (s *HTTPServer) createMod(c *fiber.Ctx) error {
	var in models.ModInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	m, err := s.svc.Mods.Create(c.UserContext(), caller(c), c.Params("id"), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}

func (s *HTTPServer) updateMod(c *fiber.Ctx) error {
	var in models.ModInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	m, err := s.svc.Mods.Update(c.UserContext(), caller(c), c.Params("id"), c.Params("modID"), in)
	if err != nil {
		return err
	}
	return c.JSON(m)
}

func (s *HTTPServer) deleteMod(c *fiber.Ctx) error {
	if err := s.svc.Mods.Delete(c.UserContext(), caller(c), c.Params("id"), c.Params("modID")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *HTTPServer) reorderMod(c *fiber.Ctx) error {
	dir, err := parseDirection(c)
	if err != nil {
		return err
	}
	out, err := s.svc.Mods.Reorder(c.UserContext(), caller(c), c.Params("id"), c.Params("modID"), dir)
	if err != nil {
		return err
	}
	return c.JSON(reorderResponse{Outcome: out})
}

// --- images ---

func (s *HTTPServer) listImages(c *fiber.Ctx) error {
	imgs, err := s.svc.Images.List(c.UserContext(), caller(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(imgs)
}

func (s *HTTPServer) uploadVehicleImage(c *fiber.Ctx) error {
	return s.uploadImage(c, authz.Ref{Kind: authz.KindVehicle, ID: c.Params("id")})
}

func (s *HTTPServer) uploadModImage(c *fiber.Ctx) error {
	return s.uploadImage(c, authz.Ref{Kind: authz.KindMod, ID: c.Params("modID")})
}

func (s *HTTPServer) uploadImage(c *fiber.Ctx, parent authz.Ref) error {
	up, err := s.readUpload(c)
	if err != nil {
		return err
	}
	img, err := s.svc.Images.Upload(c.UserContext(), caller(c), parent, c.FormValue("caption"), up)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(img)
}

func (s *HTTPServer) updateImageCaption(c *fiber.Ctx) error {
	var req captionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	img, err := s.svc.Images.UpdateCaption(c.UserContext(), caller(c), c.Params("id"), req.Caption)
	if err != nil {
		return err
	}
	return c.JSON(img)
}

func (s *HTTPServer) deleteImage(c *fiber.Ctx) error {
	if err := s.svc.Images.Delete(c.UserContext(), caller(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ownerMedia returns a signed URL for any object the caller may write.
func (s *HTTPServer) ownerMedia(c *fiber.Ctx) error {
	u, err := s.svc.Public.OwnerMediaURL(c.UserContext(), caller(c), c.Params("*"))
	if err != nil {
		return err
	}
	return c.JSON(urlResponse{URL: u})
}
