package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"unicode/utf8"
)

// Normalize canonicalizes raw request text: leading/trailing whitespace is
// trimmed and internal whitespace runs collapse to single spaces. Case and
// punctuation carry classification signal and are preserved. The result is
// rejected when empty or longer than maxChars runes.
func Normalize(raw string, maxChars int) (string, error) {
	normalized := strings.Join(strings.Fields(raw), " ")
	if normalized == "" {
		return "", WrapError(ErrInvalidInput, "normalize", errors.New("text is empty"))
	}
	if maxChars > 0 && utf8.RuneCountInString(normalized) > maxChars {
		return "", WrapError(ErrInvalidInput, "normalize",
			errors.New("text exceeds maximum length"))
	}
	return normalized, nil
}

// Fingerprint derives the cache key digest for normalized text. Equal
// normalized texts always map to the same fingerprint.
func Fingerprint(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])[:16]
}
