package auth

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

func HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func CheckPassword(hashedPassword, plainPassword string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(plainPassword))
	return err == nil
}

// Credentials holds the admin password as a bcrypt hash, a plain value, or
// both. The hash wins when set. With neither set no password is accepted.
type Credentials struct {
	PasswordHash string
	Password     string
}

func (c Credentials) Match(password string) bool {
	if password == "" {
		return false
	}
	if c.PasswordHash != "" {
		return CheckPassword(c.PasswordHash, password)
	}
	if c.Password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.Password), []byte(password)) == 1
}
