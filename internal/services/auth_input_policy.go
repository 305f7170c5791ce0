package services

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
)

var (
	ErrAuthEmailInvalid        = errors.New("auth email invalid")
	ErrInvalidVerificationCode = errors.New("invalid verification code")
)

var verificationCodeFormatRegex = regexp.MustCompile(`^[0-9]{4,10}$`)

func NormalizeAuthEmail(raw string) string {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return ""
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ""
	}
	return email
}

func NormalizeVerificationInput(emailRaw string, codeRaw string) (string, string, error) {
	email := NormalizeAuthEmail(emailRaw)
	if email == "" {
		return "", "", ErrAuthEmailInvalid
	}
	code := strings.TrimSpace(codeRaw)
	if !verificationCodeFormatRegex.MatchString(code) {
		return "", "", ErrInvalidVerificationCode
	}
	return email, code, nil
}
