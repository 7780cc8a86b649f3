package auth

import (
	"crypto/subtle"
	"fmt"

	sharedErrors "github.com/khanhnv2901/wisafe/internal/shared/errors"
	"golang.org/x/crypto/bcrypt"
)

// Credentials hold the single operator account.
type Credentials struct {
	username string
	hash     []byte
}

// NewCredentials builds credentials from a bcrypt hash, or from a plaintext
// password when no hash is configured.
func NewCredentials(username, passwordHash, password string) (*Credentials, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: username", sharedErrors.ErrMissingRequired)
	}
	switch {
	case passwordHash != "":
		if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
			return nil, fmt.Errorf("%w: password hash: %v", sharedErrors.ErrValidation, err)
		}
		return &Credentials{username: username, hash: []byte(passwordHash)}, nil
	case password != "":
		hash, err := HashPassword(password)
		if err != nil {
			return nil, err
		}
		return &Credentials{username: username, hash: []byte(hash)}, nil
	default:
		return nil, fmt.Errorf("%w: password or password hash", sharedErrors.ErrMissingRequired)
	}
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Username returns the operator name.
func (c *Credentials) Username() string { return c.username }

// Verify checks username and password.
func (c *Credentials) Verify(username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(c.hash, []byte(password))
	if !userOK || passErr != nil {
		return sharedErrors.ErrInvalidCredentials
	}
	return nil
}
