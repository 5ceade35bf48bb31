package storage

import (
	"strings"
	"testing"
)

func TestValidateFullName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		ok   bool
	}{
		{name: "initials", in: "Иванов И.И.", ok: true},
		{name: "plain latin", in: "Petrov P.P.", ok: true},
		{name: "too short", in: "Ив", ok: false},
		{name: "too long", in: strings.Repeat("а", 51), ok: false},
		{name: "max length", in: strings.Repeat("а", 50), ok: true},
		{name: "digits", in: "Иванов 2-й", ok: false},
		{name: "html lt", in: "Иванов <b>И.И.</b>", ok: false},
		{name: "ampersand", in: "Smith & Sons", ok: false},
		{name: "quote", in: `Иванов "И"`, ok: false},
		{name: "empty", in: "", ok: false},
		{name: "whitespace only", in: "    ", ok: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFullName(tt.in)
			if tt.ok && err != nil {
				t.Fatalf("ValidateFullName(%q) = %v, want nil", tt.in, err)
			}
			if !tt.ok && err == nil {
				t.Fatalf("ValidateFullName(%q) = nil, want error", tt.in)
			}
		})
	}
}

func TestValidateLocation(t *testing.T) {
	t.Parallel()
	if err := ValidateLocation("Магазин"); err != nil {
		t.Fatalf("short location rejected: %v", err)
	}
	if err := ValidateLocation(strings.Repeat("x", 100)); err != nil {
		t.Fatalf("100-rune location rejected: %v", err)
	}
	if err := ValidateLocation(""); err == nil {
		t.Fatal("empty location accepted")
	}
	if err := ValidateLocation(strings.Repeat("x", 101)); err == nil {
		t.Fatal("101-rune location accepted")
	}
}
