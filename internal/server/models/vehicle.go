package models

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/buildbio/internal/common"
)

// Vehicle belongs to exactly one profile. Siblings are ordered by
// (SortOrder, CreatedAt, ID).
type Vehicle struct {
	ID            string    `json:"id"`
	ProfileID     string    `json:"profile_id"`
	Name          string    `json:"name"`
	Year          *int      `json:"year,omitempty"`
	Make          string    `json:"make"`
	Model         string    `json:"model"`
	Trim          string    `json:"trim"`
	HeroImagePath *string   `json:"hero_image_path,omitempty"`
	IsPublic      bool      `json:"is_public"`
	SortOrder     int       `json:"sort_order"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// VehicleInput carries the owner-editable vehicle fields.
type VehicleInput struct {
	Name     string `json:"name"`
	Year     *int   `json:"year"`
	Make     string `json:"make"`
	Model    string `json:"model"`
	Trim     string `json:"trim"`
	IsPublic bool   `json:"is_public"`
}

const (
	maxVehicleNameLen = 120
	maxVehicleAttrLen = 60
	minVehicleYear    = 1886
	maxVehicleYear    = 2100
)

func (in *VehicleInput) Normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Make = strings.TrimSpace(in.Make)
	in.Model = strings.TrimSpace(in.Model)
	in.Trim = strings.TrimSpace(in.Trim)

	if in.Name == "" || len(in.Name) > maxVehicleNameLen {
		return common.ErrorValidation
	}
	for _, s := range []string{in.Make, in.Model, in.Trim} {
		if len(s) > maxVehicleAttrLen {
			return common.ErrorValidation
		}
	}
	if in.Year != nil && (*in.Year < minVehicleYear || *in.Year > maxVehicleYear) {
		return common.ErrorValidation
	}
	return nil
}
