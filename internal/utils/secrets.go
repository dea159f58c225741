package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// GenerateSecret generates a cryptographically secure random secret
func GenerateSecret(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateAdminKey returns a fresh admin key and the bcrypt hash the server is configured with
func GenerateAdminKey() (key, hash string, err error) {
	key, err = GenerateSecret(24)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate admin key: %w", err)
	}
	hash, err = HashAdminKey(key)
	if err != nil {
		return "", "", err
	}
	return key, hash, nil
}

// HashAdminKey bcrypt-hashes an existing admin key
func HashAdminKey(key string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash admin key: %w", err)
	}
	return string(h), nil
}
