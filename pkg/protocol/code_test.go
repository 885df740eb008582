package protocol

import (
	"strings"
	"testing"
)

func TestGenerateCodeShape(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := GenerateCode()
		if len(code) != CodeLength {
			t.Fatalf("code %q has length %d", code, len(code))
		}
		if !IsValidCode(code) {
			t.Fatalf("generated code %q failed validation", code)
		}
	}
}

func TestCodeAlphabetExcludesAmbiguousGlyphs(t *testing.T) {
	for _, r := range "01ILOSB" {
		if strings.ContainsRune(CodeAlphabet, r) {
			t.Errorf("alphabet contains ambiguous glyph %q", r)
		}
	}
}

func TestNormalizeCode(t *testing.T) {
	tests := []struct{ in, want string }{
		{"a2c4e", "A2C4E"},
		{"  A2C4E  ", "A2C4E"},
		{"A2c4E", "A2C4E"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeCode(tt.in); got != tt.want {
			t.Errorf("NormalizeCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsValidCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"A2C4E", true},
		{"23456", true},
		{"a2c4e", false},
		{"A2C4", false},
		{"A2C4E9", false},
		{"A2C4O", false},
		{"A2C41", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValidCode(tt.code); got != tt.want {
			t.Errorf("IsValidCode(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}
