package hipaa

import (
	"strings"
	"testing"
)

func TestRotatingEncryptor_EncryptDecryptCurrentKey(t *testing.T) {
	key := generateTestKey(t)
	re, err := NewRotatingEncryptor(key, 1)
	if err != nil {
		t.Fatalf("create rotating encryptor: %v", err)
	}

	plaintext := "Alice Moreno"
	ciphertext, err := re.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	if !strings.HasPrefix(ciphertext, "v1:") {
		t.Errorf("expected ciphertext to start with 'v1:', got %q", ciphertext[:10])
	}

	decrypted, err := re.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}

	if decrypted != plaintext {
		t.Errorf("roundtrip failed: got %q, want %q", decrypted, plaintext)
	}
}

func TestRotatingEncryptor_DecryptWithPreviousKey(t *testing.T) {
	oldKey := generateTestKey(t)
	newKey := generateTestKey(t)

	oldEnc, err := NewRotatingEncryptor(oldKey, 1)
	if err != nil {
		t.Fatalf("create old encryptor: %v", err)
	}

	plaintext := "record written before rotation"
	oldCiphertext, err := oldEnc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("encrypt with old key: %v", err)
	}

	newEnc, err := NewRotatingEncryptor(newKey, 2)
	if err != nil {
		t.Fatalf("create new encryptor: %v", err)
	}
	if err := newEnc.AddPreviousKey(oldKey, 1); err != nil {
		t.Fatalf("add previous key: %v", err)
	}

	decrypted, err := newEnc.Decrypt(oldCiphertext)
	if err != nil {
		t.Fatalf("decrypt with previous key: %v", err)
	}

	if decrypted != plaintext {
		t.Errorf("expected %q, got %q", plaintext, decrypted)
	}
}

func TestRotatingEncryptor_DecryptUnknownVersion(t *testing.T) {
	key := generateTestKey(t)
	re, err := NewRotatingEncryptor(key, 2)
	if err != nil {
		t.Fatalf("create encryptor: %v", err)
	}

	_, err = re.Decrypt("v99:someciphertext")
	if err == nil {
		t.Fatal("expected error for unknown key version")
	}
}

func TestRotatingEncryptor_NeedsReEncryption(t *testing.T) {
	oldKey := generateTestKey(t)
	newKey := generateTestKey(t)

	oldEnc, err := NewRotatingEncryptor(oldKey, 1)
	if err != nil {
		t.Fatalf("create old encryptor: %v", err)
	}
	oldCiphertext, err := oldEnc.Encrypt("test data")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	newEnc, err := NewRotatingEncryptor(newKey, 2)
	if err != nil {
		t.Fatalf("create new encryptor: %v", err)
	}
	if err := newEnc.AddPreviousKey(oldKey, 1); err != nil {
		t.Fatalf("add previous key: %v", err)
	}

	if !newEnc.NeedsReEncryption(oldCiphertext) {
		t.Error("expected old ciphertext to need re-encryption")
	}

	newCiphertext, err := newEnc.Encrypt("new data")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if newEnc.NeedsReEncryption(newCiphertext) {
		t.Error("expected new ciphertext to not need re-encryption")
	}
}

func TestRotatingEncryptor_NeedsReEncryption_LegacyData(t *testing.T) {
	key := generateTestKey(t)
	re, err := NewRotatingEncryptor(key, 1)
	if err != nil {
		t.Fatalf("create encryptor: %v", err)
	}

	// Data written before versioning carries no prefix.
	enc, _ := NewPHIEncryptor(key)
	legacyCiphertext, err := enc.Encrypt("legacy data")
	if err != nil {
		t.Fatalf("encrypt legacy: %v", err)
	}

	if !re.NeedsReEncryption(legacyCiphertext) {
		t.Error("expected legacy ciphertext (no version prefix) to need re-encryption")
	}
}

func TestRotatingEncryptor_ReEncrypt(t *testing.T) {
	oldKey := generateTestKey(t)
	newKey := generateTestKey(t)

	oldEnc, err := NewRotatingEncryptor(oldKey, 1)
	if err != nil {
		t.Fatalf("create old encryptor: %v", err)
	}
	plaintext := "name stored under the retired key"
	oldCiphertext, err := oldEnc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	newEnc, err := NewRotatingEncryptor(newKey, 2)
	if err != nil {
		t.Fatalf("create new encryptor: %v", err)
	}
	if err := newEnc.AddPreviousKey(oldKey, 1); err != nil {
		t.Fatalf("add previous key: %v", err)
	}

	newCiphertext, err := newEnc.ReEncrypt(oldCiphertext)
	if err != nil {
		t.Fatalf("re-encrypt: %v", err)
	}

	if !strings.HasPrefix(newCiphertext, "v2:") {
		t.Errorf("expected re-encrypted ciphertext to start with 'v2:', got prefix %q", newCiphertext[:5])
	}

	if newEnc.NeedsReEncryption(newCiphertext) {
		t.Error("expected re-encrypted ciphertext to not need re-encryption")
	}

	decrypted, err := newEnc.Decrypt(newCiphertext)
	if err != nil {
		t.Fatalf("decrypt re-encrypted: %v", err)
	}
	if decrypted != plaintext {
		t.Errorf("expected %q, got %q", plaintext, decrypted)
	}
}

func TestRotatingEncryptor_LegacyDecrypt(t *testing.T) {
	key := generateTestKey(t)

	enc, err := NewPHIEncryptor(key)
	if err != nil {
		t.Fatalf("create PHI encryptor: %v", err)
	}
	plaintext := "legacy encrypted data"
	legacyCiphertext, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("encrypt legacy: %v", err)
	}

	re, err := NewRotatingEncryptor(key, 1)
	if err != nil {
		t.Fatalf("create rotating encryptor: %v", err)
	}

	// Unversioned data falls back to the current key.
	decrypted, err := re.Decrypt(legacyCiphertext)
	if err != nil {
		t.Fatalf("decrypt legacy: %v", err)
	}
	if decrypted != plaintext {
		t.Errorf("expected %q, got %q", plaintext, decrypted)
	}
}

func TestRotatingEncryptor_CurrentVersion(t *testing.T) {
	key := generateTestKey(t)
	re, err := NewRotatingEncryptor(key, 42)
	if err != nil {
		t.Fatalf("create encryptor: %v", err)
	}

	if re.CurrentVersion() != 42 {
		t.Errorf("expected current version 42, got %d", re.CurrentVersion())
	}
}

func TestNewRotatingEncryptor_InvalidKey(t *testing.T) {
	_, err := NewRotatingEncryptor([]byte("short"), 1)
	if err == nil {
		t.Fatal("expected error for invalid key")
	}
}

func TestRotatingEncryptor_AddPreviousKey_InvalidKey(t *testing.T) {
	key := generateTestKey(t)
	re, err := NewRotatingEncryptor(key, 1)
	if err != nil {
		t.Fatalf("create encryptor: %v", err)
	}

	err = re.AddPreviousKey([]byte("short"), 0)
	if err == nil {
		t.Fatal("expected error for invalid previous key")
	}
}

func TestSplitVersionedCiphertext(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantVer  int
		wantData string
		wantOK   bool
	}{
		{"valid v1", "v1:data", 1, "data", true},
		{"valid v2", "v2:encrypted_data_here", 2, "encrypted_data_here", true},
		{"valid v99", "v99:data", 99, "data", true},
		{"no prefix", "data_without_prefix", 0, "", false},
		{"no separator", "v1data", 0, "", false},
		{"invalid version", "vX:data", 0, "", false},
		{"empty string", "", 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ver, data, ok := splitVersionedCiphertext(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ok: got %v, want %v", ok, tt.wantOK)
			}
			if !tt.wantOK {
				return
			}
			if ver != tt.wantVer {
				t.Errorf("version: got %d, want %d", ver, tt.wantVer)
			}
			if data != tt.wantData {
				t.Errorf("data: got %q, want %q", data, tt.wantData)
			}
		})
	}
}
