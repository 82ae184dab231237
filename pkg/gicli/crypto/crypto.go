// Package crypto implements the ENC: secret-at-rest scheme described in
// spec §4.2 and §6: a master key (ENV_ENCRYPTION_KEY) is stretched with
// scrypt into an AES-256 key, and AES-256-GCM encrypts/decrypts values
// prefixed "ENC:". This is the one out-of-scope-sounding collaborator
// (spec §1 lists "secret-at-rest encryption" among the thin external
// pieces) that the Substitutor's core contract actually depends on, so
// unlike the CLI parser or the Swagger generator it is implemented in
// full, grounded on golang.org/x/crypto/scrypt — present in the pack's
// dependency graph (an indirect of meikuraledutech-dag's stack) and
// adopted here directly.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

const (
	// Prefix marks a string as ENC-encoded.
	Prefix = "ENC:"

	keyLen  = 32 // AES-256
	nonceLen = 16 // spec: "IV is the first 16 bytes"
	tagLen  = 16 // spec: "auth tag the last 16"
)

// fixedSalt is the scrypt salt spec §4.2 calls "a fixed salt": a
// constant is required so that the same master key always derives the
// same encryption key across process restarts, with no separate salt
// store to manage.
var fixedSalt = []byte("gicli-enc-v1-salt")

func deriveKey(masterKey string) ([]byte, error) {
	return scrypt.Key([]byte(masterKey), fixedSalt, 1<<15, 8, 1, keyLen)
}

// Encrypt produces an "ENC:"-prefixed, base64-encoded ciphertext of
// plaintext using masterKey.
func Encrypt(masterKey, plaintext string) (string, error) {
	key, err := deriveKey(masterKey)
	if err != nil {
		return "", fmt.Errorf("deriving key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, nonceLen)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	// Seal appends its tag (tagLen bytes) to the ciphertext, matching
	// spec's layout: IV(16) || ciphertext || tag(16).
	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	out := append(append([]byte{}, nonce...), sealed...)
	return Prefix + base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. s may or may not carry the ENC: prefix;
// both forms are accepted so callers can pass either the raw payload or
// the full tagged string.
func Decrypt(masterKey, s string) (string, error) {
	raw := stripPrefix(s)
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", fmt.Errorf("decoding base64: %w", err)
	}
	if len(data) < nonceLen+tagLen {
		return "", errors.New("ciphertext too short")
	}
	key, err := deriveKey(masterKey)
	if err != nil {
		return "", fmt.Errorf("deriving key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, nonceLen)
	if err != nil {
		return "", err
	}
	nonce, ciphertextAndTag := data[:nonceLen], data[nonceLen:]
	plaintext, err := gcm.Open(nil, nonce, ciphertextAndTag, nil)
	if err != nil {
		return "", fmt.Errorf("decrypting: %w", err)
	}
	return string(plaintext), nil
}

// IsEncrypted reports whether s carries the ENC: prefix.
func IsEncrypted(s string) bool {
	return len(s) >= len(Prefix) && s[:len(Prefix)] == Prefix
}

func stripPrefix(s string) string {
	if IsEncrypted(s) {
		return s[len(Prefix):]
	}
	return s
}
