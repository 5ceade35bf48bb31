package storage

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	fullNameMinRunes = 3
	fullNameMaxRunes = 50
	locationMinRunes = 1
	locationMaxRunes = 100
)

// ValidateFullName enforces the journal's name policy: 3..50 runes,
// no digits and no HTML-special characters. "Иванов И.И."-shaped names
// must pass.
func ValidateFullName(name string) error {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n < fullNameMinRunes || n > fullNameMaxRunes {
		return ErrInvalidName
	}
	for _, r := range name {
		if unicode.IsDigit(r) {
			return ErrInvalidName
		}
		switch r {
		case '<', '>', '&', '"', '\'', '/', '\\':
			return ErrInvalidName
		}
	}
	return nil
}

// ValidateLocation enforces the location length bounds.
func ValidateLocation(location string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(location))
	if n < locationMinRunes || n > locationMaxRunes {
		return ErrInvalidLocation
	}
	return nil
}
