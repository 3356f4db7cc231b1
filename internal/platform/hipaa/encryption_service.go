package hipaa

import (
	"encoding/hex"
	"fmt"

	"github.com/rs/zerolog"
)

// EncryptionService provides field-level PHI encryption for the application.
// It wraps a versioned FieldEncryptor and adds a disabled mode for development
// environments where no encryption key is configured.
type EncryptionService struct {
	encryptor *RotatingEncryptor
	enabled   bool
}

// NewEncryptionService creates a new encryption service.
//
// If key is empty, encryption is disabled (development mode) and a warning is
// logged. All Encrypt/Decrypt calls become no-ops that return the value as-is,
// and Encryptor() returns nil so repositories fall back to plaintext storage.
//
// A non-empty key must be a 64-character hex string encoding a 32-byte
// AES-256 key. A malformed key is an error so the application refuses to
// start rather than silently storing plaintext.
func NewEncryptionService(key string, logger zerolog.Logger) (*EncryptionService, error) {
	if key == "" {
		logger.Warn().Msg("PHI encryption disabled: ENCRYPTION_KEY is not set")
		return &EncryptionService{enabled: false}, nil
	}

	keyBytes, err := decodeHexKey(key, "ENCRYPTION_KEY")
	if err != nil {
		return nil, err
	}
	enc, err := NewRotatingEncryptor(keyBytes, 1)
	if err != nil {
		return nil, fmt.Errorf("create PHI encryptor: %w", err)
	}

	logger.Info().Msg("PHI field-level encryption enabled")
	return &EncryptionService{encryptor: enc, enabled: true}, nil
}

// decodeHexKey decodes a 64-character hex key into its 32 raw bytes.
func decodeHexKey(hexKey, what string) ([]byte, error) {
	keyBytes, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%s is not valid hex: %w", what, err)
	}
	if len(keyBytes) != 32 {
		return nil, fmt.Errorf("%s must be 32 bytes (64 hex chars), got %d bytes", what, len(keyBytes))
	}
	return keyBytes, nil
}

// AddPreviousKey registers a retired key version so records written under an
// earlier key stay readable after rotation. No-op when encryption is disabled.
func (s *EncryptionService) AddPreviousKey(hexKey string, version int) error {
	if !s.enabled {
		return nil
	}
	keyBytes, err := decodeHexKey(hexKey, fmt.Sprintf("previous key v%d", version))
	if err != nil {
		return err
	}
	return s.encryptor.AddPreviousKey(keyBytes, version)
}

// Encryptor returns the underlying FieldEncryptor, or nil if encryption is
// disabled. Repositories accept the result directly: a nil FieldEncryptor
// means plaintext pass-through.
func (s *EncryptionService) Encryptor() FieldEncryptor {
	if !s.enabled {
		return nil
	}
	return s.encryptor
}

// EncryptField encrypts one PHI value, passing it through untouched when
// encryption is disabled.
func (s *EncryptionService) EncryptField(value string) (string, error) {
	if !s.enabled {
		return value, nil
	}
	return s.encryptor.Encrypt(value)
}

// DecryptField decrypts one PHI value, passing it through untouched when
// encryption is disabled.
func (s *EncryptionService) DecryptField(value string) (string, error) {
	if !s.enabled {
		return value, nil
	}
	return s.encryptor.Decrypt(value)
}

// IsEnabled reports whether encryption is active.
func (s *EncryptionService) IsEnabled() bool {
	return s.enabled
}
