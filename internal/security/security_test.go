package security

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestRandomString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		length   int
		alphabet string
		wantErr  bool
	}{
		{name: "negative length", length: -1, alphabet: "abc", wantErr: true},
		{name: "empty alphabet", length: 1, alphabet: "", wantErr: true},
		{name: "zero length", length: 0, alphabet: "abc"},
		{name: "single alphabet character", length: 8, alphabet: "X"},
		{name: "digits", length: 64, alphabet: Digits},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			got, err := RandomString(test.length, test.alphabet)
			if test.wantErr {
				if err == nil {
					t.Fatalf("RandomString(%d, %q) expected error, got nil", test.length, test.alphabet)
				}
				return
			}
			if err != nil {
				t.Fatalf("RandomString(%d, %q) returned error: %v", test.length, test.alphabet, err)
			}
			if len(got) != test.length {
				t.Fatalf("RandomString(%d, %q) len = %d, want %d", test.length, test.alphabet, len(got), test.length)
			}
			for _, char := range got {
				if !strings.ContainsRune(test.alphabet, char) {
					t.Fatalf("RandomString(%d, %q) produced char %q outside alphabet", test.length, test.alphabet, char)
				}
			}
		})
	}
}

func TestNumericCode(t *testing.T) {
	t.Parallel()

	code, err := NumericCode(6)
	if err != nil {
		t.Fatalf("NumericCode returned error: %v", err)
	}
	if len(code) != 6 || strings.Trim(code, Digits) != "" {
		t.Fatalf("expected 6 digits, got %q", code)
	}
}

func TestDeriveKey(t *testing.T) {
	t.Parallel()

	secret := strings.Repeat("s", MinSecretLength)

	first, err := DeriveKey(secret, "jwt", 32)
	if err != nil {
		t.Fatalf("DeriveKey returned error: %v", err)
	}
	second, err := DeriveKey(secret, "jwt", 32)
	if err != nil {
		t.Fatalf("DeriveKey returned error: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("expected derivation to be deterministic")
	}

	other, err := DeriveKey(secret, "cookies", 32)
	if err != nil {
		t.Fatalf("DeriveKey returned error: %v", err)
	}
	if bytes.Equal(first, other) {
		t.Fatalf("expected different purposes to yield different keys")
	}
	if bytes.Contains(first, []byte(secret)) {
		t.Fatalf("derived key must not embed the secret")
	}

	if _, err := DeriveKey("short", "jwt", 32); !errors.Is(err, ErrSecretTooShort) {
		t.Fatalf("expected ErrSecretTooShort, got %v", err)
	}
}
