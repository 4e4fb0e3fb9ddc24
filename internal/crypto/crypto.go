// Package crypto provides the key derivation and authenticated encryption
// primitives the vault is built on: Argon2id for password hashing and key
// derivation, AES-256-GCM for secret envelopes.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

var (
	// ErrDecryption indicates an authentication failure: the ciphertext,
	// nonce or tag was tampered with, or the wrong key was used.
	ErrDecryption = errors.New("decryption failed: ciphertext authentication error")
)

const (
	// KeySize is the derived key length in bytes (AES-256).
	KeySize = 32

	// SaltSize is the length of generated salts in bytes.
	SaltSize = 16

	// NonceSize is the GCM nonce length in bytes.
	NonceSize = 12

	// TagSize is the GCM authentication tag length in bytes.
	TagSize = 16

	// Argon2id cost parameters. Changing these invalidates every stored
	// hash and derived key, so they are fixed for the life of a vault.
	argonTime    = 3
	argonMemory  = 64 * 1024 // 64 MiB
	argonThreads = 4
)

// GenerateSalt returns a fresh random salt.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// DeriveKey derives a symmetric key from a password and salt using Argon2id.
// The same (password, salt) pair always yields the same key.
func DeriveKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, KeySize)
}

// HashPassword computes a one-way, salted password hash. The hash uses the
// same KDF as DeriveKey but a distinct salt, so knowing the hash never
// reveals the vault key.
func HashPassword(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, KeySize)
}

// VerifyPassword reports whether password matches the stored hash. The
// comparison is constant-time with respect to the hash contents.
func VerifyPassword(password string, hash, salt []byte) bool {
	candidate := HashPassword(password, salt)
	defer Zero(candidate)
	return subtle.ConstantTimeCompare(candidate, hash) == 1
}

// Encrypt seals plaintext under key with AES-256-GCM. The nonce is freshly
// random per call; the authentication tag is returned separately so the
// three components can be persisted as independent columns.
func Encrypt(key, plaintext []byte) (ciphertext, nonce, tag []byte, err error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, nil, nil, err
	}

	nonce = make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, nil, fmt.Errorf("generate nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)
	ciphertext = sealed[:len(sealed)-TagSize]
	tag = sealed[len(sealed)-TagSize:]
	return ciphertext, nonce, tag, nil
}

// Decrypt opens a (ciphertext, nonce, tag) envelope. Any bit flip in any of
// the three components fails authentication and returns ErrDecryption; no
// partial plaintext is ever returned.
func Decrypt(key, ciphertext, nonce, tag []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	if len(nonce) != NonceSize || len(tag) != TagSize {
		return nil, ErrDecryption
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecryption
	}
	return plaintext, nil
}

// Zero overwrites b in place. Go gives no hard guarantee that no copy
// survives elsewhere, but every long-lived buffer we control is wiped.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key length %d, want %d", len(key), KeySize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create AEAD: %w", err)
	}
	return aead, nil
}
