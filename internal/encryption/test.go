package encryption

import (
	"bytes"
	"fmt"
	"io"

	"ecotermo/internal/eco"
)

// testHeader marks payloads "encrypted" by TestEncryptor.
var testHeader = []byte("ECOENC\x00\x00")

// TestEncryptor is a deterministic, reversible stand-in for AgeEncryptor.
// Encrypt prepends testHeader and Decrypt strips it, so ciphertext checksums
// differ from plaintext without any key material.
type TestEncryptor struct {
	setupCalled bool
	passphrase  string
}

var _ eco.Encryptor = (*TestEncryptor)(nil)

// NewTestEncryptor creates a new TestEncryptor.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

// Setup records the passphrase; Unlock rejects any other one afterwards.
func (e *TestEncryptor) Setup(passphrase string) error {
	e.setupCalled = true
	e.passphrase = passphrase
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(passphrase string) (eco.DecryptionContext, error) {
	if e.setupCalled && passphrase != e.passphrase {
		return nil, fmt.Errorf("decrypting private key: wrong passphrase")
	}
	return &TestDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool {
	return true
}

// TestDecryptionContext strips the header added by TestEncryptor.
type TestDecryptionContext struct{}

var _ eco.DecryptionContext = (*TestDecryptionContext)(nil)

func (c *TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return fmt.Errorf("invalid test encryption header")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
