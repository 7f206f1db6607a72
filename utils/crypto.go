package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"sync"
)

var ErrInvalidKey = errors.New("DATA_ENCRYPTION_KEY must be exactly 32 characters")

var (
	keyMu         sync.RWMutex
	encryptionKey []byte
)

// SetEncryptionKey overrides DATA_ENCRYPTION_KEY for the process.
func SetEncryptionKey(key string) error {
	if len(key) != 32 {
		return ErrInvalidKey
	}
	keyMu.Lock()
	encryptionKey = []byte(key)
	keyMu.Unlock()
	return nil
}

func currentKey() ([]byte, error) {
	keyMu.RLock()
	key := encryptionKey
	keyMu.RUnlock()
	if key != nil {
		return key, nil
	}

	env := os.Getenv("DATA_ENCRYPTION_KEY")
	if len(env) != 32 {
		return nil, ErrInvalidKey
	}
	return []byte(env), nil
}

func newGCM() (cipher.AEAD, error) {
	key, err := currentKey()
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext with AES-GCM and returns nonce||ciphertext in base64.
func Encrypt(plaintext []byte) (string, error) {
	gcm, err := newGCM()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func Decrypt(cryptoText string) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(cryptoText)
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM()
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

func EncryptString(s string) (string, error) {
	return Encrypt([]byte(s))
}

func DecryptString(s string) (string, error) {
	b, err := Decrypt(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
