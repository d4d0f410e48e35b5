// Package password hashes and verifies account passwords with bcrypt.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is used when Hasher.Cost is zero.
const DefaultCost = 12

// MaxBytes is the longest password bcrypt accepts, counted in bytes.
const MaxBytes = 72

var (
	// ErrMismatch is returned by Verify when the password does not match.
	ErrMismatch = errors.New("password does not match")
	// ErrTooLong is returned by Hash for passwords over MaxBytes.
	ErrTooLong = errors.New("password is too long")
)

// Hasher produces salted bcrypt hashes. Each call to Hash draws a fresh salt,
// so hashing the same password twice yields different strings.
type Hasher struct {
	Cost int
}

func NewHasher(cost int) *Hasher {
	return &Hasher{Cost: cost}
}

func (h *Hasher) cost() int {
	if h == nil || h.Cost == 0 {
		return DefaultCost
	}
	return h.Cost
}

// Hash returns the encoded bcrypt hash of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxBytes {
		return "", ErrTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost())
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// Verify compares plaintext with an encoded hash. It returns ErrMismatch for
// a wrong password and a wrapped error for a malformed hash.
func (h *Hasher) Verify(hash, plaintext string) error {
	// No stored hash can come from a password bcrypt refuses.
	if len(plaintext) > MaxBytes {
		return ErrMismatch
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrMismatch
	default:
		return fmt.Errorf("verifying password: %w", err)
	}
}
