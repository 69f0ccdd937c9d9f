package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidPIN is returned for PINs that are not 4 to 8 digits
var ErrInvalidPIN = errors.New("PIN must be 4 to 8 digits")

// ValidatePIN checks the shape of a parent PIN
func ValidatePIN(pin string) error {
	if len(pin) < 4 || len(pin) > 8 {
		return ErrInvalidPIN
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return ErrInvalidPIN
		}
	}
	return nil
}

// HashPIN hashes a parent PIN with bcrypt
func HashPIN(pin string) (string, error) {
	if err := ValidatePIN(pin); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash PIN: %w", err)
	}
	return string(hash), nil
}

// CheckPIN reports whether pin matches the stored hash
func CheckPIN(pin, hash string) bool {
	if pin == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}
