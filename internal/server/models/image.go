package models

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/buildbio/internal/common"
)

// Image is attached to exactly one of a vehicle or a mod.
type Image struct {
	ID            string    `json:"id"`
	ProfileID     string    `json:"profile_id"`
	VehicleID     *string   `json:"vehicle_id,omitempty"`
	ModID         *string   `json:"mod_id,omitempty"`
	StorageBucket string    `json:"storage_bucket"`
	StoragePath   string    `json:"storage_path"`
	Caption       string    `json:"caption"`
	SortOrder     int       `json:"sort_order"`
	CreatedAt     time.Time `json:"created_at"`
	URL           string    `json:"url,omitempty"`
}

const maxCaptionLen = 300

// Validate checks the exactly-one-parent rule and the path shape.
func (i *Image) Validate() error {
	if (i.VehicleID == nil) == (i.ModID == nil) {
		return common.ErrorValidation
	}
	if !ValidStoragePath(i.StoragePath) {
		return common.ErrorValidation
	}
	if len(i.Caption) > maxCaptionLen {
		return common.ErrorValidation
	}
	return nil
}

// NormalizeCaption trims and bounds a caption.
func NormalizeCaption(c string) (string, error) {
	c = strings.TrimSpace(c)
	if len(c) > maxCaptionLen {
		return "", common.ErrorValidation
	}
	return c, nil
}

const maxStoragePathLen = 512

// ValidStoragePath rejects empty, absolute, traversing or otherwise
// malformed object paths.
func ValidStoragePath(p string) bool {
	if p == "" || len(p) > maxStoragePathLen {
		return false
	}
	if strings.HasPrefix(p, "/") || strings.HasSuffix(p, "/") {
		return false
	}
	if strings.Contains(p, "//") || strings.Contains(p, "\\") || strings.ContainsRune(p, 0) {
		return false
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return false
		}
	}
	return true
}
