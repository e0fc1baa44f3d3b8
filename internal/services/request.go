package services

import (
	"fmt"
	"slices"
	"strings"

	"chatroom-backend/internal/datauri"
	"chatroom-backend/internal/models"
)

// NewChatRequest validates one user turn. Text may be empty only when at
// least one image is attached.
func NewChatRequest(text string, images []string) (models.ChatRequest, error) {
	fields := map[string]string{}

	text = strings.TrimSpace(text)
	if text == "" && len(images) == 0 {
		fields["text"] = "Message text or an image is required"
	}

	if len(images) > models.MaxReferenceImages {
		fields["images"] = fmt.Sprintf("At most %d images may be attached", models.MaxReferenceImages)
	} else {
		for i, img := range images {
			if _, err := datauri.ParseImage(img); err != nil {
				fields[fmt.Sprintf("images[%d]", i)] = err.Error()
			}
		}
	}

	if len(fields) > 0 {
		return models.ChatRequest{}, &ValidationError{Fields: fields}
	}

	return models.ChatRequest{
		UserText:        text,
		ReferenceImages: slices.Clone(images),
	}, nil
}
