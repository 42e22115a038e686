package httpapi

import (
	"context"

	"github.com/dmitrijs2005/buildbio/internal/server/authz"
	"github.com/dmitrijs2005/buildbio/internal/server/models"
	"github.com/dmitrijs2005/buildbio/internal/server/services"
)

// AuthService is the identity provider behind /auth.
type AuthService interface {
	SignUp(ctx context.Context, email, password string) (*services.TokenPair, error)
	SignIn(ctx context.Context, email, password string) (*services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	AccountID(token string) (string, error)
}

type ProfileService interface {
	Get(ctx context.Context, caller string) (*models.Profile, error)
	Update(ctx context.Context, caller string, upd models.ProfileUpdate) (*models.Profile, error)
	SetAvatar(ctx context.Context, caller string, up services.Upload) (*models.Profile, error)
	Delete(ctx context.Context, caller string) error
}

type VehicleService interface {
	Create(ctx context.Context, caller string, in models.VehicleInput) (*models.Vehicle, error)
	List(ctx context.Context, caller string) ([]models.Vehicle, error)
	Get(ctx context.Context, caller, id string) (*models.Vehicle, error)
	Update(ctx context.Context, caller, id string, in models.VehicleInput) (*models.Vehicle, error)
	SetPublic(ctx context.Context, caller, id string, public bool) (*models.Vehicle, error)
	Delete(ctx context.Context, caller, id string) error
	SetHeroImage(ctx context.Context, caller, id string, up services.Upload) (*models.Vehicle, error)
	Reorder(ctx context.Context, caller, id string, dir models.Direction) (models.ReorderOutcome, error)
}

type ModService interface {
	Create(ctx context.Context, caller, vehicleID string, in models.ModInput) (*models.Mod, error)
	List(ctx context.Context, caller, vehicleID string) ([]models.Mod, error)
	Update(ctx context.Context, caller, vehicleID, modID string, in models.ModInput) (*models.Mod, error)
	Delete(ctx context.Context, caller, vehicleID, modID string) error
	Reorder(ctx context.Context, caller, vehicleID, modID string, dir models.Direction) (models.ReorderOutcome, error)
}

type ImageService interface {
	Upload(ctx context.Context, caller string, parent authz.Ref, caption string, up services.Upload) (*models.Image, error)
	UpdateCaption(ctx context.Context, caller, id, caption string) (*models.Image, error)
	Delete(ctx context.Context, caller, id string) error
	List(ctx context.Context, caller, vehicleID string) ([]models.Image, error)
}

type PublicService interface {
	Profile(ctx context.Context, username string) (*services.PublicProfile, error)
	Build(ctx context.Context, username, vehicleID string) (*services.PublicBuild, error)
	MediaURL(ctx context.Context, path string) (string, error)
	OwnerMediaURL(ctx context.Context, caller, path string) (string, error)
}

// Services bundles the business logic the HTTP layer dispatches to.
type Services struct {
	Auth     AuthService
	Profiles ProfileService
	Vehicles VehicleService
	Mods     ModService
	Images   ImageService
	Public   PublicService
}
