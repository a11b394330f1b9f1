package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/zkvault/zkvault-server/internal/model"
)

// Derivation and envelope parameters are pinned protocol constants shared
// by client and server. A mismatch on either side silently derives a
// different key and every decryption fails authentication.
const (
	// KDFIterations is the PBKDF2-HMAC-SHA-256 iteration count.
	KDFIterations = 310_000
	// KeySize is the derived AES-256 key size in bytes.
	KeySize = 32
	// SaltSize is the required key derivation salt size in bytes.
	SaltSize = 16
	// NonceSize is the AES-GCM nonce size in bytes.
	NonceSize = 12
	// TagSize is the AES-GCM authentication tag size in bytes.
	TagSize = 16
)

// KeyHandle holds a derived vault key. Raw material stays inside the
// handle; comparisons go through Equal.
type KeyHandle struct {
	key []byte
}

// DeriveVaultKey derives the vault key from the master password and a
// base64-encoded server-issued salt. Deterministic for identical inputs.
func DeriveVaultKey(masterPassword string, saltB64 string) (KeyHandle, error) {
	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return KeyHandle{}, fmt.Errorf("%w: %v", model.ErrInvalidSalt, err)
	}
	if len(salt) != SaltSize {
		return KeyHandle{}, fmt.Errorf("%w: got %d bytes, want %d", model.ErrInvalidSalt, len(salt), SaltSize)
	}

	key := pbkdf2.Key([]byte(masterPassword), salt, KDFIterations, KeySize, sha256.New)
	return KeyHandle{key: key}, nil
}

// GenerateSalt produces a fresh random key derivation salt.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// Encrypt seals plaintext with AES-256-GCM under a fresh random nonce and
// returns base64(nonce || ciphertext || tag). Nonce reuse within a key is
// prevented by the random draw per call; callers must not push a single
// key past a practical operation count.
func Encrypt(key KeyHandle, plaintext []byte) (string, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(append(nonce, sealed...)), nil
}

// Decrypt opens a base64 envelope produced by Encrypt. Every
// authentication-relevant failure collapses to ErrAuthenticationFailed
// so callers cannot distinguish wrong key, corruption or tampering.
func Decrypt(key KeyHandle, envelopeB64 string) ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(envelopeB64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidEnvelope, err)
	}
	if len(blob) < NonceSize+TagSize {
		return nil, model.ErrAuthenticationFailed
	}

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, blob[:NonceSize], blob[NonceSize:], nil)
	if err != nil {
		return nil, model.ErrAuthenticationFailed
	}
	return plaintext, nil
}

// ConstantTimeEqual compares two byte slices in data-independent time.
func ConstantTimeEqual(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// Equal compares two key handles in constant time.
func (k KeyHandle) Equal(other KeyHandle) bool {
	return ConstantTimeEqual(k.key, other.key)
}

func newAEAD(key KeyHandle) (cipher.AEAD, error) {
	if len(key.key) != KeySize {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(key.key), KeySize)
	}
	block, err := aes.NewCipher(key.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aead, nil
}
