package encryption

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ecotermo/internal/config"
	"ecotermo/internal/vault"
)

func newTestAgeEncryptor(t *testing.T) *AgeEncryptor {
	t.Helper()
	dir := t.TempDir()
	return NewAgeEncryptor(config.EncryptionConfig{
		Type:           "age",
		PublicKeyPath:  filepath.Join(dir, "keys", "ecotermo.pub"),
		PrivateKeyPath: filepath.Join(dir, "keys", "ecotermo.key"),
	})
}

func TestAgeEncryptor_Setup(t *testing.T) {
	t.Parallel()
	e := newTestAgeEncryptor(t)

	if e.IsConfigured() {
		t.Error("IsConfigured() = true before Setup, want false")
	}
	if err := e.Setup("test-passphrase"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if !e.IsConfigured() {
		t.Error("IsConfigured() = false after Setup, want true")
	}

	info, err := os.Stat(e.privateKeyPath)
	if err != nil {
		t.Fatalf("stat private key: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("private key permissions = %o, want 600", perm)
	}

	if err := e.Setup("other"); !errors.Is(err, ErrKeysExist) {
		t.Errorf("second Setup() error = %v, want ErrKeysExist", err)
	}
}

func TestAgeEncryptor_SetupEmptyPassphrase(t *testing.T) {
	t.Parallel()
	e := newTestAgeEncryptor(t)
	if err := e.Setup(""); err == nil {
		t.Error("Setup(\"\") should return error")
	}
	if e.IsConfigured() {
		t.Error("IsConfigured() = true after failed Setup")
	}
}

func TestAgeEncryptor_EncryptDecryptRoundTrip(t *testing.T) {
	t.Parallel()

	passphrase := "test-passphrase"
	e := newTestAgeEncryptor(t)
	if err := e.Setup(passphrase); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	dc, err := e.Unlock(passphrase)
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "snapshot payload", input: []byte(`{"version":1,"records":[]}`)},
		{name: "empty", input: []byte{}},
		{name: "binary data", input: []byte{0x28, 0xb5, 0x2f, 0xfd, 0x00, 0xff}},
		{name: "large data", input: bytes.Repeat([]byte("abcdef"), 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var encrypted bytes.Buffer
			if err := e.Encrypt(bytes.NewReader(tt.input), &encrypted); err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if len(tt.input) > 0 && bytes.Contains(encrypted.Bytes(), tt.input) {
				t.Error("encrypted output contains plaintext")
			}

			var decrypted bytes.Buffer
			if err := dc.Decrypt(bytes.NewReader(encrypted.Bytes()), &decrypted); err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if !bytes.Equal(decrypted.Bytes(), tt.input) {
				t.Errorf("round-trip failed: got %d bytes, want %d bytes", decrypted.Len(), len(tt.input))
			}
		})
	}
}

func TestAgeEncryptor_UnlockWrongPassphrase(t *testing.T) {
	t.Parallel()

	e := newTestAgeEncryptor(t)
	if err := e.Setup("correct-passphrase"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if _, err := e.Unlock("wrong-passphrase"); err == nil {
		t.Error("Unlock() with wrong passphrase should return error")
	}
}

func TestAgeEncryptor_BeforeSetup(t *testing.T) {
	t.Parallel()

	e := newTestAgeEncryptor(t)
	if err := e.Encrypt(bytes.NewReader([]byte("data")), &bytes.Buffer{}); err == nil {
		t.Error("Encrypt() before Setup should return error")
	}
	if _, err := e.Unlock("passphrase"); err == nil {
		t.Error("Unlock() before Setup should return error")
	}
}

func TestAgeEncryptor_BackupAndRestoreKeys(t *testing.T) {
	t.Parallel()

	v := vault.NewMemoryVault("test")
	original := newTestAgeEncryptor(t)
	if err := original.Setup("secret"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if err := original.BackupKeys(v, "plant-a"); err != nil {
		t.Fatalf("BackupKeys() error = %v", err)
	}

	var encrypted bytes.Buffer
	if err := original.Encrypt(bytes.NewReader([]byte("payload")), &encrypted); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	restored := newTestAgeEncryptor(t)
	if err := restored.RestoreKeys(v, "plant-a"); err != nil {
		t.Fatalf("RestoreKeys() error = %v", err)
	}
	if !restored.IsConfigured() {
		t.Fatal("IsConfigured() = false after RestoreKeys")
	}
	if err := restored.RestoreKeys(v, "plant-a"); !errors.Is(err, ErrKeysExist) {
		t.Errorf("second RestoreKeys() error = %v, want ErrKeysExist", err)
	}

	dc, err := restored.Unlock("secret")
	if err != nil {
		t.Fatalf("Unlock() restored keys error = %v", err)
	}
	var decrypted bytes.Buffer
	if err := dc.Decrypt(&encrypted, &decrypted); err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if decrypted.String() != "payload" {
		t.Errorf("Decrypt() = %q, want %q", decrypted.String(), "payload")
	}
}

func TestAgeEncryptor_RestoreKeysMissingBackup(t *testing.T) {
	t.Parallel()

	e := newTestAgeEncryptor(t)
	if err := e.RestoreKeys(vault.NewMemoryVault("test"), "plant-a"); err == nil {
		t.Error("RestoreKeys() without backup should return error")
	}
}
