package services

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/buildbio/internal/common"
	"github.com/google/uuid"
)

// Upload is one image file received from a client.
type Upload struct {
	ContentType string
	Data        []byte
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// objectName checks the payload is an image and returns a fresh file name
// for it. The declared content type is ignored in favor of the sniffed one.
func (u Upload) objectName() (name, contentType string, err error) {
	if len(u.Data) == 0 {
		return "", "", fmt.Errorf("%w: empty upload", common.ErrorValidation)
	}
	contentType = http.DetectContentType(u.Data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", "", fmt.Errorf("%w: unsupported content type %s", common.ErrorValidation, contentType)
	}
	return uuid.NewString() + ext, contentType, nil
}
