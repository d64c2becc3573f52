package util

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxFileNameLength bounds stored file names, in runes.
const MaxFileNameLength = 255

var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName removes path separators and control characters and
// rejects traversal patterns.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	if s == "" || !utf8.ValidString(s) || utf8.RuneCountInString(s) > MaxFileNameLength {
		return "", ErrInvalidFileName
	}
	return s, nil
}
