package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"

	"github.com/aretw0/sluice/pkg/ports"
)

// ErrKeySize is returned for keys that are not 32 bytes long.
var ErrKeySize = errors.New("key must be 32 bytes (AES-256)")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte

	// Fields names the columns to encrypt.
	Fields []string
}

func (c EncryptionConfig) validate() error {
	for _, k := range append([][]byte{c.ActiveKey}, c.FallbackKeys...) {
		if len(k) != 32 {
			return ErrKeySize
		}
	}
	return nil
}

type encryptionMiddleware struct {
	next   ports.Sink
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that replaces each configured field by
// its AES-GCM ciphertext, base64 encoded. Values are JSON encoded first, so Decrypt
// returns them with their JSON type. Nil values stay nil.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	return func(next ports.Sink) ports.Sink {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}, nil
}

func (m *encryptionMiddleware) Append(ctx context.Context, c ports.Collector) error {
	fields := maps.Clone(c.Fields())
	for _, name := range m.config.Fields {
		v, ok := fields[name]
		if !ok || v == nil {
			continue
		}
		plainText, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal field %s: %w", name, err)
		}
		ciphertext, err := encrypt(plainText, m.config.ActiveKey)
		if err != nil {
			return fmt.Errorf("failed to encrypt field %s: %w", name, err)
		}
		fields[name] = base64.StdEncoding.EncodeToString(ciphertext)
	}
	return m.next.Append(ctx, ports.Row(fields))
}

// Decrypt reverses the encryption of one field value, trying the active key first and
// the fallback keys after it.
func Decrypt(config EncryptionConfig, value string) (any, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}
	plainText, err := decryptWithRotation(ciphertext, config.ActiveKey, config.FallbackKeys)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(plainText, &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted value: %w", err)
	}
	return v, nil
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	// Try active key first
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}

	// Try fallbacks in order
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertextBytes := ciphertext[gcm.NonceSize():]

	return gcm.Open(nil, nonce, ciphertextBytes, nil)
}
