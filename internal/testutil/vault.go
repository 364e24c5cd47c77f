package testutil

import (
	"io"

	"ecotermo/internal/eco"
	"ecotermo/internal/vault"
)

// NewTestVault creates a new in-memory vault for testing.
func NewTestVault() *vault.MemoryVault {
	return vault.NewMemoryVault("test-vault")
}

// FailingVault rejects every write. Reads are served by the embedded vault.
type FailingVault struct {
	eco.Vault
}

// NewFailingVault wraps an empty in-memory vault.
func NewFailingVault() *FailingVault {
	return &FailingVault{Vault: NewTestVault()}
}

func (v *FailingVault) PutContent(string, io.Reader, int64) error {
	return ErrInjected
}

func (v *FailingVault) PutMetadata(string, string, io.Reader, int64, int64) error {
	return ErrInjected
}
