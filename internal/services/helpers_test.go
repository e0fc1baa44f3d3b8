package services

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"testing"

	"chatroom-backend/internal/datauri"
	"chatroom-backend/internal/models"
)

type fakeDecider struct {
	decision *models.RoutingDecision
	err      error
	calls    int
}

func (f *fakeDecider) Decide(_ context.Context, _ models.ChatRequest) (*models.RoutingDecision, error) {
	f.calls++
	return f.decision, f.err
}

type fakeImages struct {
	img         *GeneratedImage
	err         error
	calls       int
	references  []*datauri.DataURI
	instruction string
}

func (f *fakeImages) GenerateImage(_ context.Context, refs []*datauri.DataURI, instruction string) (*GeneratedImage, error) {
	f.calls++
	f.references = refs
	f.instruction = instruction
	return f.img, f.err
}

// pngDataURI returns a w x h PNG encoded as a data URI.
func pngDataURI(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return datauri.Encode("image/png", buf.Bytes())
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
