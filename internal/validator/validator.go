// Package validator provides input validation and sanitization for reviewer input.
package validator

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Validation errors
var (
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrInvalidEmailID   = errors.New("invalid email id format")
	ErrInputTooLong     = errors.New("input exceeds maximum length")
	ErrInvalidCharacter = errors.New("input contains invalid characters")
	ErrEmptyInput       = errors.New("input cannot be empty")
)

// Length limits
const (
	MaxReviewerNameLength = 80
	MaxCommentLength      = 5000
)

// Catalog email ids: lowercase alphanumeric and hyphens
var emailIDRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,63}$`)

// ValidateEmail validates email address format according to RFC 5322.
// Returns nil if valid, or an appropriate error.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(strings.ToLower(email))

	if email == "" {
		return ErrEmptyInput
	}

	// RFC 5321 specifies max email length of 254 characters
	if utf8.RuneCountInString(email) > 254 {
		return ErrInputTooLong
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}

	return nil
}

// ValidateEmailID checks the shape of a catalog email id used as a store key
func ValidateEmailID(id string) error {
	if id == "" {
		return ErrEmptyInput
	}
	if !emailIDRegex.MatchString(id) {
		return ErrInvalidEmailID
	}
	return nil
}

// NormalizeReviewerName strips control characters and surrounding whitespace.
// An empty result is rejected.
func NormalizeReviewerName(name string) (string, error) {
	name = SanitizeString(name, 0)
	if name == "" {
		return "", ErrEmptyInput
	}
	if utf8.RuneCountInString(name) > MaxReviewerNameLength {
		return "", ErrInputTooLong
	}
	return name, nil
}

// NormalizeCommentText trims a comment body. Line breaks and tabs are kept,
// other control characters are removed.
func NormalizeCommentText(text string) (string, error) {
	text = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, text)
	text = strings.TrimSpace(text)

	if text == "" {
		return "", ErrEmptyInput
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return "", ErrInputTooLong
	}
	return text, nil
}

// SanitizeString removes potentially dangerous characters and enforces length limits.
// Removes control characters and trims whitespace.
func SanitizeString(input string, maxLength int) string {
	// Remove control characters (ASCII 0-31 and 127)
	input = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, input)

	input = strings.TrimSpace(input)

	if maxLength > 0 && utf8.RuneCountInString(input) > maxLength {
		runes := []rune(input)
		input = string(runes[:maxLength])
	}

	return input
}
