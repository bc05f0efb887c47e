// Package crypto provides at-rest field encryption and blind indexing for
// user text: journal titles/content, chat messages, and email lookup.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
)

// Cipher encrypts free-text fields with AES-256-GCM and produces HMAC-SHA256
// blind indexes so encrypted columns stay searchable by exact value.
type Cipher struct {
	encryptionKey []byte
	blindIndexKey []byte
}

// NewCipher builds a Cipher from two independent 32-byte keys. Keys may be
// supplied raw, hex-encoded, or base64-encoded.
func NewCipher(encryptionKey, blindIndexKey string) (*Cipher, error) {
	ek, err := decodeKey(encryptionKey)
	if err != nil {
		return nil, errors.New("encryption key must decode to 32 bytes")
	}
	bk, err := decodeKey(blindIndexKey)
	if err != nil {
		return nil, errors.New("blind index key must decode to 32 bytes")
	}
	return &Cipher{encryptionKey: ek, blindIndexKey: bk}, nil
}

func decodeKey(s string) ([]byte, error) {
	if len(s) == 32 {
		return []byte(s), nil
	}
	if b, err := hex.DecodeString(s); err == nil && len(b) == 32 {
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil && len(b) == 32 {
		return b, nil
	}
	return nil, errors.New("bad key")
}

// Encrypt returns base64(nonce || ciphertext). Empty input stays empty so
// optional columns round-trip cleanly.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	block, err := aes.NewCipher(c.encryptionKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(c.encryptionKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}
	nonce, cipherBytes := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, cipherBytes, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// BlindIndex returns a deterministic HMAC-SHA256 digest of plaintext for
// exact-match lookup over encrypted columns.
func (c *Cipher) BlindIndex(plaintext string) string {
	if plaintext == "" {
		return ""
	}
	h := hmac.New(sha256.New, c.blindIndexKey)
	h.Write([]byte(plaintext))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
