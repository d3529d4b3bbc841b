package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeyBytes is the master key length (AES-256).
	KeyBytes = 32
	// SaltBytes is the master-key salt length.
	SaltBytes = 16

	// pbkdf2Iterations follows current OWASP guidance for
	// PBKDF2-HMAC-SHA256.
	pbkdf2Iterations = 210_000
)

// NewSalt returns a fresh random master-key salt.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// DeriveMasterKey stretches a low-entropy PIN into a symmetric master key.
// The same PIN and salt always yield the same key; the key lives only in
// process memory while the engine is unlocked.
func DeriveMasterKey(pin string, salt []byte) []byte {
	return pbkdf2.Key([]byte(pin), salt, pbkdf2Iterations, KeyBytes, sha256.New)
}

// SealWithKey encrypts plaintext under key with AES-256-GCM. The nonce is
// returned separately so the caller can persist it in its own slot.
func SealWithKey(key, plaintext []byte) (nonce, ciphertext []byte, err error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}
	nonce = make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}
	return nonce, aead.Seal(nil, nonce, plaintext, nil), nil
}

// OpenWithKey decrypts a SealWithKey ciphertext. A wrong key or tampered
// ciphertext fails the GCM tag check.
func OpenWithKey(key, nonce, ciphertext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, nonce, ciphertext, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
