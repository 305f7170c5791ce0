package services

import (
	"errors"
	"testing"
)

func TestNormalizeAuthEmail(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "normalizes case and spaces", raw: " USER@EXAMPLE.COM ", want: "user@example.com"},
		{name: "invalid email returns empty", raw: "not-email", want: ""},
		{name: "empty returns empty", raw: "   ", want: ""},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			if got := NormalizeAuthEmail(testCase.raw); got != testCase.want {
				t.Fatalf("NormalizeAuthEmail(%q) = %q, want %q", testCase.raw, got, testCase.want)
			}
		})
	}
}

func TestNormalizeVerificationInput(t *testing.T) {
	email, code, err := NormalizeVerificationInput(" USER@EXAMPLE.COM ", " 012345 ")
	if err != nil {
		t.Fatalf("expected valid verification input, got %v", err)
	}
	if email != "user@example.com" {
		t.Fatalf("expected normalized email, got %q", email)
	}
	if code != "012345" {
		t.Fatalf("expected trimmed code with leading zero, got %q", code)
	}

	_, _, err = NormalizeVerificationInput("not-email", "123456")
	if !errors.Is(err, ErrAuthEmailInvalid) {
		t.Fatalf("expected ErrAuthEmailInvalid, got %v", err)
	}

	_, _, err = NormalizeVerificationInput("user@example.com", "12ab56")
	if !errors.Is(err, ErrInvalidVerificationCode) {
		t.Fatalf("expected ErrInvalidVerificationCode for non-numeric code, got %v", err)
	}
}
