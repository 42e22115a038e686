package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/dmitrijs2005/buildbio/internal/common"
)

// Profile is the root of the ownership tree. A nil Username means the
// profile is unpublished.
type Profile struct {
	ID          string    `json:"id"`
	Username    *string   `json:"username"`
	DisplayName string    `json:"display_name"`
	Bio         string    `json:"bio"`
	AvatarPath  *string   `json:"avatar_path,omitempty"`
	IsPro       bool      `json:"is_pro"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Published reports whether the profile has a public handle.
func (p *Profile) Published() bool {
	return p.Username != nil
}

// ProfileUpdate carries the owner-editable profile fields.
type ProfileUpdate struct {
	Username    *string `json:"username"`
	DisplayName string  `json:"display_name"`
	Bio         string  `json:"bio"`
}

var usernameRe = regexp.MustCompile(`^[a-z0-9_]{3,30}$`)

const (
	maxDisplayNameLen = 80
	maxBioLen         = 500
)

// NormalizeUsername lowercases and trims a requested handle. An empty
// handle unpublishes the profile and is returned as nil.
func NormalizeUsername(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	u := strings.ToLower(strings.TrimSpace(*raw))
	if u == "" {
		return nil, nil
	}
	if !usernameRe.MatchString(u) {
		return nil, common.ErrorValidation
	}
	return &u, nil
}

// Normalize validates the update in place.
func (u *ProfileUpdate) Normalize() error {
	name, err := NormalizeUsername(u.Username)
	if err != nil {
		return err
	}
	u.Username = name
	u.DisplayName = strings.TrimSpace(u.DisplayName)
	u.Bio = strings.TrimSpace(u.Bio)
	if len(u.DisplayName) > maxDisplayNameLen || len(u.Bio) > maxBioLen {
		return common.ErrorValidation
	}
	return nil
}
