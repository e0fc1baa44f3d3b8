package services

import (
	"testing"

	"chatroom-backend/internal/models"
)

func TestNewChatRequest(t *testing.T) {
	img := pngDataURI(t, 1, 1)

	req, err := NewChatRequest("  draw a sunset  ", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if req.UserText != "draw a sunset" {
		t.Errorf("Expected trimmed text, got %q", req.UserText)
	}

	images := []string{img}
	req, err = NewChatRequest("", images)
	if err != nil {
		t.Fatalf("Expected image-only turn to be valid: %v", err)
	}
	images[0] = "changed"
	if req.ReferenceImages[0] != img {
		t.Error("Expected request to own a copy of the images")
	}
}

func TestNewChatRequest_Validation(t *testing.T) {
	img := pngDataURI(t, 1, 1)
	tooMany := make([]string, models.MaxReferenceImages+1)
	for i := range tooMany {
		tooMany[i] = img
	}

	tests := []struct {
		name   string
		text   string
		images []string
		field  string
	}{
		{"empty", "   ", nil, "text"},
		{"too many images", "hi", tooMany, "images"},
		{"bad image", "hi", []string{img, "data:text/plain;base64,aGk="}, "images[1]"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewChatRequest(tc.text, tc.images)
			verr, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if _, ok := verr.Fields[tc.field]; !ok {
				t.Errorf("Expected field %q in %v", tc.field, verr.Fields)
			}
		})
	}
}
