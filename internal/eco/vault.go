package eco

import "io"

// Vault provides an interface for blob storage backends.
// Snapshot payloads are stored as content; the database replica and the
// encryption keys are stored as metadata.
type Vault interface {
	// PutContent stores content identified by its checksum.
	// The operation is idempotent: storing the same checksum multiple times is safe.
	// size is the number of bytes that will be read from r.
	PutContent(checksum string, r io.Reader, size int64) error

	// GetContent retrieves content by checksum and writes it to w.
	GetContent(checksum string, w io.Writer) error

	// PutMetadata stores a named metadata item for an actor.
	// version is stored alongside the metadata for consistency checks.
	// Known names: "db" (SQLite database), "public_key", "private_key".
	PutMetadata(actor string, name string, r io.Reader, size int64, version int64) error

	// GetMetadata retrieves a named metadata item for an actor and writes it to w.
	GetMetadata(actor string, name string, w io.Writer) error

	// GetMetadataVersion returns the metadata version for a named item.
	// Returns 0 if nothing has been stored for this actor/name.
	GetMetadataVersion(actor string, name string) (int64, error)

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup() error
}
