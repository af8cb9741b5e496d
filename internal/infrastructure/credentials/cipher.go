// Package credentials encrypts marketplace credential bags at rest and
// serves them decrypted just-in-time for adapter construction.
package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// keySize is the AES-256 key length in bytes
const keySize = 32

// Errors for cipher construction and use
var (
	ErrInvalidKeySize      = errors.New("credentials: encryption key must be 32 bytes")
	ErrMalformedCiphertext = errors.New("credentials: malformed ciphertext")
)

// Cipher seals and opens credential payloads with AES-256-GCM. Each seal
// draws a fresh random nonce, prefixes it to the ciphertext, and encodes
// the result as standard base64.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher creates a cipher from a raw 32-byte key
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidKeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("credentials: create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("credentials: create GCM: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// NewCipherFromBase64Key creates a cipher from a base64-encoded 32-byte key,
// the form the key takes in configuration.
func NewCipherFromBase64Key(encoded string) (*Cipher, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("credentials: decode key: %w", err)
	}
	return NewCipher(key)
}

// Encrypt seals plaintext and returns the base64-encoded nonce||ciphertext
func (c *Cipher) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("credentials: generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a payload produced by Encrypt. Tampered or truncated
// payloads return ErrMalformedCiphertext.
func (c *Cipher) Decrypt(encoded string) ([]byte, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	nonceSize := c.aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, ErrMalformedCiphertext
	}
	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: authentication failed", ErrMalformedCiphertext)
	}
	return plaintext, nil
}
