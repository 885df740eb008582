package protocol

import (
	"crypto/rand"
	"strings"
)

// CodeAlphabet excludes glyphs that read ambiguously when a code is written on
// a whiteboard or spoken aloud (0/O, 1/I/L, 5/S, B/8, G/6, V/Z).
const CodeAlphabet = "23456789ACDEFHJKMNPQRTUWXY"

// CodeLength is the fixed length of a session code.
const CodeLength = 5

// GenerateCode returns a random session code drawn from CodeAlphabet.
func GenerateCode() string {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform entropy source is broken;
		// nothing sensible to fall back to.
		panic("protocol: reading random bytes: " + err.Error())
	}
	for i, b := range buf {
		buf[i] = CodeAlphabet[int(b)%len(CodeAlphabet)]
	}
	return string(buf)
}

// NormalizeCode maps user-typed input onto the canonical code form. Lookups
// are case-insensitive, so students may type codes in either case.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidCode reports whether code has the canonical length and alphabet.
func IsValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(CodeAlphabet, rune(code[i])) {
			return false
		}
	}
	return true
}
