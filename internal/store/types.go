package store

import (
	"errors"
	"regexp"
	"time"
)

// Validation limits for admin credentials and PINs.
const (
	// MinUsernameLength is the minimum admin username length.
	MinUsernameLength = 4

	// MaxUsernameLength is the maximum admin username length.
	MaxUsernameLength = 64

	// MinPasswordLength is the minimum admin password length.
	MinPasswordLength = 6

	// MaxPINLength bounds keypad input. Keypads emit digits only.
	MaxPINLength = 16
)

// usernamePattern defines the valid format for usernames:
// alphanumeric, dots, hyphens, underscores.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// pinPattern defines the valid format for PINs: digits only.
var pinPattern = regexp.MustCompile(`^[0-9]+$`)

// IsValidUsername checks if a username meets format requirements.
// Usernames must be 4-64 characters, alphanumeric with dots, hyphens, underscores.
func IsValidUsername(username string) bool {
	return len(username) >= MinUsernameLength &&
		len(username) <= MaxUsernameLength &&
		usernamePattern.MatchString(username)
}

// IsValidPassword checks if a password meets the minimum length requirement.
func IsValidPassword(password string) bool {
	return len(password) >= MinPasswordLength
}

// IsValidPIN checks if a PIN is non-empty, numeric, and within length bounds.
func IsValidPIN(pin string) bool {
	return len(pin) > 0 && len(pin) <= MaxPINLength && pinPattern.MatchString(pin)
}

// Pin represents one accepted access code. Only the hash is persisted;
// the plaintext never touches storage.
type Pin struct {
	ID        string    `json:"id"`
	PinHash   string    `json:"-"` // never serialised
	Label     string    `json:"label,omitempty"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Admin represents an administrator account.
type Admin struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // never serialised
	CreatedBy    string    `json:"created_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Sentinel errors for store operations.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrPinNotFound    = errors.New("pin not found")
	ErrAdminNotFound  = errors.New("admin not found")
	ErrUsernameExists = errors.New("username already exists")
)
