// Package crypto encrypts sensitive configuration values, such as CAPTCHA
// provider API keys, so they can live in a config file at rest.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	iterations = 100000
	keySize    = 32 // AES-256
)

// Encryptor handles encryption and decryption of sensitive data
type Encryptor struct {
	key []byte
}

// NewEncryptor creates a new encryptor with the given passphrase. An empty
// passphrase returns nil; a nil Encryptor passes values through unchanged,
// so callers never need to branch on whether encryption is configured.
func NewEncryptor(passphrase string) *Encryptor {
	if passphrase == "" {
		return nil
	}

	// The salt is derived from the passphrase. That keeps the ciphertext
	// self-contained with no separate salt file at the cost of rainbow
	// table resistance, acceptable for operator-chosen passphrases.
	salt := sha256.Sum256([]byte(passphrase + "eventscout-salt"))
	key := pbkdf2.Key([]byte(passphrase), salt[:], iterations, keySize, sha256.New)

	return &Encryptor{key: key}
}

// Encrypt encrypts plaintext using AES-GCM
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	if e == nil || e.key == nil {
		return plaintext, nil
	}
	if plaintext == "" {
		return "", nil
	}

	block, err := aes.NewCipher(e.key)
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

// Decrypt decrypts ciphertext using AES-GCM. Input that is not valid
// ciphertext is returned unchanged, so plaintext config values keep
// working when a passphrase is later introduced.
func (e *Encryptor) Decrypt(ciphertext string) (string, error) {
	if e == nil || e.key == nil {
		return ciphertext, nil
	}
	if ciphertext == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return ciphertext, nil
	}

	block, err := aes.NewCipher(e.key)
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

	nonce, cipherData := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, cipherData, nil)
	if err != nil {
		return ciphertext, nil
	}

	return string(plaintext), nil
}
