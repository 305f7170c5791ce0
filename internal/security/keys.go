package security

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const MinSecretLength = 32

var ErrSecretTooShort = errors.New("secret too short")

// DeriveKey expands the configured secret into a purpose-bound key so one
// secret can back several independent signers.
func DeriveKey(secret string, purpose string, size int) ([]byte, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}
	if size <= 0 {
		size = sha256.Size
	}

	key := make([]byte, size)
	reader := hkdf.New(sha256.New, []byte(secret), nil, []byte("cycleapp:"+purpose))
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", purpose, err)
	}
	return key, nil
}
