package datauri

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantMIME string
		wantData string
		wantErr  error
	}{
		{"png", "data:image/png;base64,aGVsbG8=", "image/png", "hello", nil},
		{"uppercase mime", "data:IMAGE/JPEG;base64,aGVsbG8=", "image/jpeg", "hello", nil},
		{"extra params", "data:text/plain;charset=utf-8;base64,aGk=", "text/plain", "hi", nil},
		{"missing prefix", "image/png;base64,aGVsbG8=", "", "", ErrMalformed},
		{"missing comma", "data:image/png;base64", "", "", ErrMalformed},
		{"not base64", "data:image/png,hello", "", "", ErrNotBase64},
		{"bad payload", "data:image/png;base64,@@@", "", "", ErrMalformed},
		{"empty payload", "data:image/png;base64,", "", "", ErrMalformed},
		{"no mime", "data:;base64,aGk=", "", "", ErrMalformed},
		{"empty subtype", "data:image/;base64,aGk=", "", "", ErrMalformed},
		{"empty type", "data:/png;base64,aGk=", "", "", ErrMalformed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.in)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("Expected error %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got.MIMEType != tc.wantMIME {
				t.Errorf("Expected MIME %q, got %q", tc.wantMIME, got.MIMEType)
			}
			if string(got.Data) != tc.wantData {
				t.Errorf("Expected data %q, got %q", tc.wantData, got.Data)
			}
		})
	}
}

func TestParseImage_RejectsNonImage(t *testing.T) {
	_, err := ParseImage("data:text/plain;base64,aGk=")
	if !errors.Is(err, ErrNotImage) {
		t.Fatalf("Expected ErrNotImage, got %v", err)
	}
}

func TestParseImage_RejectsEmptySubtype(t *testing.T) {
	if _, err := ParseImage("data:image/;base64,aGVsbG8="); !errors.Is(err, ErrMalformed) {
		t.Fatalf("Expected ErrMalformed, got %v", err)
	}
}

func TestEncode(t *testing.T) {
	data := []byte{0x89, 'P', 'N', 'G'}

	uri := Encode("", data)
	if !strings.HasPrefix(uri, "data:image/png;base64,") {
		t.Fatalf("Expected image/png prefix, got %q", uri)
	}

	parsed, err := ParseImage(uri)
	if err != nil {
		t.Fatalf("Failed to parse encoded URI: %v", err)
	}
	if !bytes.Equal(parsed.Data, data) {
		t.Errorf("Expected %v, got %v", data, parsed.Data)
	}
	if parsed.Format() != "png" {
		t.Errorf("Expected format png, got %q", parsed.Format())
	}
}
