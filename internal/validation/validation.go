// Package validation checks values arriving from outside the process
package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode"

	"alphabettutor/internal/alphabet"
)

var (
	ErrInvalidEmail      = errors.New("invalid email address")
	ErrInvalidName       = errors.New("name must be 1 to 40 letters")
	ErrInvalidLetter     = errors.New("letter must be a single A-Z character")
	ErrInvalidConfidence = errors.New("confidence must be between 0 and 1")
	ErrInvalidMaxTurns   = errors.New("max_turns must be between 1 and 50")
)

const (
	maxNameLength = 40
	maxMaxTurns   = 50
)

// ValidateEmail checks a parent's e-mail address
func ValidateEmail(email string) error {
	if email == "" || strings.ContainsAny(email, " \t") {
		return ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" {
		return ErrInvalidEmail
	}
	return nil
}

// ValidateChildName accepts letters, spaces, hyphens and apostrophes
func ValidateChildName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLength {
		return ErrInvalidName
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && r != ' ' && r != '-' && r != '\'' {
			return ErrInvalidName
		}
	}
	return nil
}

// ValidateLetter accepts exactly one ASCII letter in either case
func ValidateLetter(letter string) error {
	if _, ok := alphabet.Normalize(letter); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidLetter, letter)
	}
	return nil
}

// ValidateConfidence accepts an optional score in [0, 1]
func ValidateConfidence(c *float64) error {
	if c == nil {
		return nil
	}
	if *c < 0 || *c > 1 || *c != *c {
		return ErrInvalidConfidence
	}
	return nil
}

// ValidateMaxTurns accepts 0 (use the default) or 1 to 50
func ValidateMaxTurns(n int) error {
	if n < 0 || n > maxMaxTurns {
		return ErrInvalidMaxTurns
	}
	return nil
}
