// Package auth authenticates TCP hosts of the line protocol and the raw input
// stream with a shared key, then encrypts the rest of the session.
package auth

import (
	"crypto/pbkdf2"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	GeneratedKeyLength = 16
	Base62Chars        = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	PBKDF2Iterations   = 100000
	PBKDF2Salt         = "jammaio-key-v1"
)

// ErrEmptyKey is returned when a key file or flag holds no key.
var ErrEmptyKey = errors.New("key is empty")

// GenerateKey returns a random base62 key.
func GenerateKey() (string, error) {
	raw := make([]byte, GeneratedKeyLength)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	for i, b := range raw {
		raw[i] = Base62Chars[int(b)%len(Base62Chars)]
	}
	return string(raw), nil
}

// DeriveKey stretches a key of any length to 32 bytes.
func DeriveKey(key string) ([]byte, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	return pbkdf2.Key(sha256.New, key, []byte(PBKDF2Salt), PBKDF2Iterations, 32)
}

// DeriveSessionKey mixes both handshake nonces into a key unique to one
// connection.
func DeriveSessionKey(key, serverNonce, clientNonce []byte) []byte {
	h := sha256.New()
	h.Write(key)
	h.Write(serverNonce)
	h.Write(clientNonce)
	h.Write([]byte("jammaio-session-v1"))
	return h.Sum(nil)
}

// ReadKeyFile returns the key stored at path with surrounding whitespace
// removed.
func ReadKeyFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	key := strings.TrimSpace(string(raw))
	if key == "" {
		return "", fmt.Errorf("%s: %w", path, ErrEmptyKey)
	}
	return key, nil
}

// LoadOrCreateKey reads the key at path, generating and storing a new one
// when the file does not exist yet.
func LoadOrCreateKey(path string) (key string, created bool, err error) {
	key, err = ReadKeyFile(path)
	if err == nil {
		return key, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", false, err
	}
	key, err = GenerateKey()
	if err != nil {
		return "", false, fmt.Errorf("generate key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", false, fmt.Errorf("create key directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(key+"\n"), 0o600); err != nil {
		return "", false, fmt.Errorf("write key file: %w", err)
	}
	return key, true, nil
}
