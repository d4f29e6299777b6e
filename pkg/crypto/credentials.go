// Package crypto provides encryption utilities for social media credentials.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrInvalidKey is returned when the encryption key is empty.
	ErrInvalidKey = errors.New("invalid encryption key: must not be empty")
	// ErrDecryptionFailed is returned when decryption fails due to invalid ciphertext or wrong key.
	ErrDecryptionFailed = errors.New("decryption failed: invalid ciphertext or wrong key")
)

// FieldEncryptor encrypts and decrypts individual credential fields scoped
// to a project. Injected into services as a capability so tests can supply
// a fake implementation.
type FieldEncryptor interface {
	Encrypt(projectID uuid.UUID, plaintext string) (string, error)
	Decrypt(projectID uuid.UUID, encrypted string) (string, error)
}

// CredentialEncryptor provides AES-256-GCM encryption for credential fields.
// It uses authenticated encryption to ensure both confidentiality and
// integrity, and derives a separate subkey per project so ciphertext from
// one project can never be decrypted in the scope of another.
type CredentialEncryptor struct {
	master []byte

	mu   sync.RWMutex
	gcms map[uuid.UUID]cipher.AEAD
}

// NewCredentialEncryptor creates a new encryptor from a master key string.
// The key can be:
//   - A base64-encoded 32-byte key (e.g., from: openssl rand -base64 32)
//   - Any passphrase (will be hashed to 32 bytes with SHA-256)
//
// If the input is valid base64 and decodes to exactly 32 bytes, it's used directly.
// Otherwise, the input is treated as a passphrase and hashed with SHA-256.
func NewCredentialEncryptor(keyInput string) (*CredentialEncryptor, error) {
	if keyInput == "" {
		return nil, ErrInvalidKey
	}

	var master []byte

	// Try base64 decode first
	decoded, err := base64.StdEncoding.DecodeString(keyInput)
	if err == nil && len(decoded) == 32 {
		// Valid base64 that decodes to exactly 32 bytes - use directly
		master = decoded
	} else {
		// Not valid base64 or wrong length - hash the input to get 32 bytes
		hash := sha256.Sum256([]byte(keyInput))
		master = hash[:]
	}

	return &CredentialEncryptor{
		master: master,
		gcms:   make(map[uuid.UUID]cipher.AEAD),
	}, nil
}

// Encrypt encrypts plaintext under the project's subkey and returns
// base64(nonce || ciphertext || tag). Empty strings are returned as-is.
func (e *CredentialEncryptor) Encrypt(projectID uuid.UUID, plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	gcm, err := e.aeadFor(projectID)
	if err != nil {
		return "", err
	}

	// Generate random nonce (12 bytes for GCM)
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Seal appends ciphertext and tag to nonce
	// Result: nonce || ciphertext || tag
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts base64(nonce || ciphertext || tag) under the project's
// subkey and returns plaintext. Empty strings are returned as-is.
func (e *CredentialEncryptor) Decrypt(projectID uuid.UUID, encrypted string) (string, error) {
	if encrypted == "" {
		return "", nil
	}

	gcm, err := e.aeadFor(projectID)
	if err != nil {
		return "", err
	}

	data, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", fmt.Errorf("%w: base64 decode failed", ErrDecryptionFailed)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize+gcm.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", ErrDecryptionFailed)
	}

	return string(plaintext), nil
}

// aeadFor returns the cached AEAD for a project, deriving the subkey on
// first use as SHA-256(master || project UUID bytes).
func (e *CredentialEncryptor) aeadFor(projectID uuid.UUID) (cipher.AEAD, error) {
	e.mu.RLock()
	gcm, ok := e.gcms[projectID]
	e.mu.RUnlock()
	if ok {
		return gcm, nil
	}

	h := sha256.New()
	h.Write(e.master)
	h.Write(projectID[:])
	subkey := h.Sum(nil)

	block, err := aes.NewCipher(subkey)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err = cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	e.mu.Lock()
	e.gcms[projectID] = gcm
	e.mu.Unlock()

	return gcm, nil
}

// Ensure CredentialEncryptor implements FieldEncryptor at compile time.
var _ FieldEncryptor = (*CredentialEncryptor)(nil)
