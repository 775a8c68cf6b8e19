package account

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations is the PBKDF2-HMAC-SHA256 work factor for new and verified hashes.
	DefaultIterations = 310000
	keyLength         = 32
	saltLength        = 16
)

// newSalt returns a random salt, base64 encoded.
func newSalt() (string, error) {
	buf := make([]byte, saltLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate salt: %w: %v", ErrHashing, err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// hashPassword derives the base64 hash of password under a base64 salt.
func hashPassword(password, salt string, iterations int) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return "", fmt.Errorf("decode salt: %w: %v", ErrHashing, err)
	}
	key := pbkdf2.Key([]byte(password), raw, iterations, keyLength, sha256.New)
	return base64.StdEncoding.EncodeToString(key), nil
}

func verifyPassword(r *Record, password string, iterations int) (bool, error) {
	hash, err := hashPassword(password, r.Salt, iterations)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(hash), []byte(r.PasswordHash)) == 1, nil
}
