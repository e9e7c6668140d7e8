package services

import (
	"fmt"
	"strings"

	"github.com/campushq/event-registration/models"
	"github.com/campushq/event-registration/storage"
)

func populateEventImageURL(event *models.Event, uploader storage.FileUploader) {
	if event != nil && event.ImageKey != nil && *event.ImageKey != "" && uploader != nil {
		url := uploader.GetPublicURL(*event.ImageKey)
		if url != "" {
			event.ImageURL = &url
		}
	}
}

// GetExtensionFromContentType maps an image content type to a file extension
// for generated object keys.
func GetExtensionFromContentType(contentType string) (string, error) {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	case "application/pdf":
		return ".pdf", nil
	default:
		parts := strings.Split(contentType, "/")
		if len(parts) == 2 && strings.HasPrefix(parts[0], "image") && parts[1] != "" {
			return "." + strings.Split(parts[1], "+")[0], nil
		}
		return "", fmt.Errorf("could not determine file extension from content type: %q", contentType)
	}
}
