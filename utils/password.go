package utils

import (
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// CredentialHasher derives the placeholder credential for imported owners.
// The salt is appended to the password as a pepper before bcrypt hashing.
// Hashes are cached per (password, salt) so one run hashes once.
type CredentialHasher struct {
	cost  int
	mu    sync.Mutex
	cache map[[2]string]string
}

func NewCredentialHasher(cost int) *CredentialHasher {
	return &CredentialHasher{cost: cost, cache: make(map[[2]string]string)}
}

// Hash returns the bcrypt hash of password+salt.
func (h *CredentialHasher) Hash(password, salt string) (string, error) {
	key := [2]string{password, salt}

	h.mu.Lock()
	defer h.mu.Unlock()

	if hash, ok := h.cache[key]; ok {
		return hash, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password+salt), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash placeholder credential: %w", err)
	}
	h.cache[key] = string(hash)
	return string(hash), nil
}

// Verify reports whether hash was derived from password and salt.
func (h *CredentialHasher) Verify(password, salt, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password+salt)) == nil
}
