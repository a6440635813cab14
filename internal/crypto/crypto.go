// Package crypto encrypts card numbers for storage.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"

	"github.com/nvoronin/card-ledger/internal/models"
)

// Encryptor performs deterministic AES-128 encryption of card numbers.
// The same plaintext always maps to the same ciphertext, which the card
// store relies on for its uniqueness constraint on encrypted numbers.
//
// TODO: revisit the ECB-style mode. Randomized encryption would require
// moving the uniqueness check to a separate keyed digest column first.
type Encryptor struct {
	block cipher.Block
}

// NewEncryptor creates an encryptor from a 16-byte key.
func NewEncryptor(key string) (*Encryptor, error) {
	if len(key) != 16 {
		return nil, fmt.Errorf("%w: encryption key must be 16 bytes, got %d", models.ErrConfiguration, len(key))
	}
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create cipher: %v", models.ErrConfiguration, err)
	}
	return &Encryptor{block: block}, nil
}

// Encrypt encrypts data and returns the ciphertext as base64.
func (e *Encryptor) Encrypt(data string) (string, error) {
	if data == "" {
		return "", fmt.Errorf("%w: plaintext is empty", models.ErrInvalidInput)
	}

	// Add PKCS#5/PKCS#7 padding
	plaintext := []byte(data)
	padding := aes.BlockSize - len(plaintext)%aes.BlockSize
	for i := 0; i < padding; i++ {
		plaintext = append(plaintext, byte(padding))
	}

	ciphertext := make([]byte, len(plaintext))
	for i := 0; i < len(plaintext); i += aes.BlockSize {
		e.block.Encrypt(ciphertext[i:i+aes.BlockSize], plaintext[i:i+aes.BlockSize])
	}

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts a base64 ciphertext produced by Encrypt.
func (e *Encryptor) Decrypt(encryptedData string) (string, error) {
	if encryptedData == "" {
		return "", fmt.Errorf("%w: ciphertext is empty", models.ErrInvalidInput)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encryptedData)
	if err != nil {
		return "", fmt.Errorf("%w: failed to decode base64: %v", models.ErrCrypto, err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: invalid ciphertext length: %d bytes", models.ErrCrypto, len(ciphertext))
	}

	plaintext := make([]byte, len(ciphertext))
	for i := 0; i < len(ciphertext); i += aes.BlockSize {
		e.block.Decrypt(plaintext[i:i+aes.BlockSize], ciphertext[i:i+aes.BlockSize])
	}

	// Remove PKCS#5/PKCS#7 padding
	padding := int(plaintext[len(plaintext)-1])
	if padding == 0 || padding > aes.BlockSize {
		return "", fmt.Errorf("%w: invalid padding value: %d", models.ErrCrypto, padding)
	}
	for i := len(plaintext) - padding; i < len(plaintext); i++ {
		if int(plaintext[i]) != padding {
			return "", fmt.Errorf("%w: invalid padding byte at position %d", models.ErrCrypto, i)
		}
	}

	return string(plaintext[:len(plaintext)-padding]), nil
}
