package models

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/buildbio/internal/common"
)

// Mod is a modification installed on a vehicle.
type Mod struct {
	ID          string     `json:"id"`
	VehicleID   string     `json:"vehicle_id"`
	Title       string     `json:"title"`
	Category    string     `json:"category"`
	CostCents   *int64     `json:"cost_cents,omitempty"`
	Notes       string     `json:"notes"`
	InstalledOn *time.Time `json:"installed_on,omitempty"`
	SortOrder   int        `json:"sort_order"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ModInput carries the owner-editable mod fields. InstalledOn is a
// YYYY-MM-DD date.
type ModInput struct {
	Title       string  `json:"title"`
	Category    string  `json:"category"`
	CostCents   *int64  `json:"cost_cents"`
	Notes       string  `json:"notes"`
	InstalledOn *string `json:"installed_on"`
}

const (
	maxModTitleLen = 120
	maxCategoryLen = 60
	maxNotesLen    = 4000
)

// Normalize validates the input and returns the parsed install date.
func (in *ModInput) Normalize() (*time.Time, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.TrimSpace(in.Category)
	in.Notes = strings.TrimSpace(in.Notes)

	if in.Title == "" || len(in.Title) > maxModTitleLen {
		return nil, common.ErrorValidation
	}
	if len(in.Category) > maxCategoryLen || len(in.Notes) > maxNotesLen {
		return nil, common.ErrorValidation
	}
	if in.CostCents != nil && *in.CostCents < 0 {
		return nil, common.ErrorValidation
	}
	if in.InstalledOn == nil || strings.TrimSpace(*in.InstalledOn) == "" {
		return nil, nil
	}
	d, err := time.Parse(time.DateOnly, strings.TrimSpace(*in.InstalledOn))
	if err != nil {
		return nil, common.ErrorValidation
	}
	return &d, nil
}
