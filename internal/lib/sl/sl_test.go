package sl

import (
	"errors"
	"testing"
)

func TestSecret(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"", "?"},
		{"abc", "***"},
		{"AIzaSyD-long-key", "AIzaS***"},
	}

	for _, tc := range tests {
		if got := Secret(tc.in).Value.String(); got != tc.expected {
			t.Errorf("Secret(%q): expected %q, got %q", tc.in, tc.expected, got)
		}
	}
}

func TestErr(t *testing.T) {
	attr := Err(errors.New("boom"))
	if attr.Key != "error" || attr.Value.String() != "boom" {
		t.Errorf("Unexpected attr %v", attr)
	}
	if Err(nil).Value.String() != "" {
		t.Error("Expected empty value for nil error")
	}
}
