package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Auth hashes and verifies user passwords. Stored passwords are bcrypt
// hashes, never plain text, and verification is constant-time.
type Auth struct {
	Cost int
}

func NewAuth() Auth {
	return Auth{
		Cost: bcrypt.DefaultCost,
	}
}

func (a Auth) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.Cost)
	if err != nil {
		return "", fmt.Errorf("cant hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored hash.
func (a Auth) VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
