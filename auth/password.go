package auth

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/podboard/backend/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 6
	MaxPasswordLength = 128
	MaxUsernameLength = 64

	// bcrypt only looks at the first 72 bytes of its input.
	maxPasswordBytes = 72
)

// PasswordHasher produces salted one-way digests and checks plaintexts against them.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// BcryptHasher implements PasswordHasher with bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher with the given work factor. Out of range
// costs fall back to bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	if len(plaintext) > maxPasswordBytes {
		return "", Invalid("password", fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", Invalid("password", fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify is constant-time with respect to the stored digest.
func (h *BcryptHasher) Verify(plaintext, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// ValidateUsername requires 1 to 64 characters.
func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n == 0 {
		return Invalid("username", "is required")
	}
	if n > MaxUsernameLength {
		return Invalid("username", fmt.Sprintf("must be at most %d characters", MaxUsernameLength))
	}
	return nil
}

// ValidatePassword checks the minimum strength and maximum length rules.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength {
		return Invalid("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	if n > MaxPasswordLength {
		return Invalid("password", fmt.Sprintf("must be at most %d characters", MaxPasswordLength))
	}
	return nil
}

// ValidateRole rejects anything outside the closed role set.
func ValidateRole(role models.Role) error {
	if !role.Valid() {
		return Invalid("role", "must be one of admin, user")
	}
	return nil
}
