package hipaa

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Versioned ciphertext format: "v{version}:" prepended to the base64 payload.
const keyVersionPrefix = "v"
const keyVersionSeparator = ":"

// RotatingEncryptor is a FieldEncryptor that supports encryption key rotation
// with versioned keys. New writes always use the current key; reads detect the
// key version from the ciphertext prefix and pick the matching key.
type RotatingEncryptor struct {
	mu         sync.RWMutex
	current    *PHIEncryptor
	currentVer int
	previous   map[int]*PHIEncryptor
}

// NewRotatingEncryptor creates a new rotating encryptor with the current key.
func NewRotatingEncryptor(currentKey []byte, currentVersion int) (*RotatingEncryptor, error) {
	enc, err := NewPHIEncryptor(currentKey)
	if err != nil {
		return nil, fmt.Errorf("rotating encryptor: current key: %w", err)
	}
	return &RotatingEncryptor{
		current:    enc,
		currentVer: currentVersion,
		previous:   make(map[int]*PHIEncryptor),
	}, nil
}

// AddPreviousKey adds a retired encryption key for decryption only.
func (r *RotatingEncryptor) AddPreviousKey(key []byte, version int) error {
	enc, err := NewPHIEncryptor(key)
	if err != nil {
		return fmt.Errorf("rotating encryptor: previous key v%d: %w", version, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.previous[version] = enc
	return nil
}

// Encrypt encrypts with the current key and prepends the version prefix.
func (r *RotatingEncryptor) Encrypt(plaintext string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ciphertext, err := r.current.Encrypt(plaintext)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d%s%s", keyVersionPrefix, r.currentVer, keyVersionSeparator, ciphertext), nil
}

// Decrypt detects the key version and decrypts with the appropriate key.
// Ciphertexts without a version prefix are tried against the current key so
// data written before versioning was introduced stays readable.
func (r *RotatingEncryptor) Decrypt(ciphertext string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	version, data, ok := splitVersionedCiphertext(ciphertext)
	if !ok {
		return r.current.Decrypt(ciphertext)
	}

	if version == r.currentVer {
		return r.current.Decrypt(data)
	}

	enc, found := r.previous[version]
	if !found {
		return "", fmt.Errorf("no key available for version %d", version)
	}
	return enc.Decrypt(data)
}

// NeedsReEncryption reports whether a ciphertext was written under an old key
// version (or before versioning) and should be rewritten with the current key.
func (r *RotatingEncryptor) NeedsReEncryption(ciphertext string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	version, _, ok := splitVersionedCiphertext(ciphertext)
	if !ok {
		return true
	}
	return version != r.currentVer
}

// ReEncrypt decrypts with the old key and re-encrypts with the current key.
func (r *RotatingEncryptor) ReEncrypt(ciphertext string) (string, error) {
	plaintext, err := r.Decrypt(ciphertext)
	if err != nil {
		return "", fmt.Errorf("re-encrypt: decrypt: %w", err)
	}
	return r.Encrypt(plaintext)
}

// CurrentVersion returns the current key version.
func (r *RotatingEncryptor) CurrentVersion() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.currentVer
}

func splitVersionedCiphertext(s string) (int, string, bool) {
	if !strings.HasPrefix(s, keyVersionPrefix) {
		return 0, "", false
	}

	idx := strings.Index(s, keyVersionSeparator)
	if idx < 0 {
		return 0, "", false
	}

	version, err := strconv.Atoi(s[len(keyVersionPrefix):idx])
	if err != nil {
		return 0, "", false
	}

	return version, s[idx+1:], true
}
