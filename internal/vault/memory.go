package vault

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"ecotermo/internal/eco"
)

type metaKey struct {
	actor, name string
}

type metaEntry struct {
	data    []byte
	version int64
}

// MemoryVault keeps payload blobs and metadata in maps. It applies the same
// name rules as the filesystem vault so tests catch names that would fail
// on disk. Safe for concurrent use.
type MemoryVault struct {
	name string

	mu       sync.RWMutex
	blobs    map[string][]byte
	metadata map[metaKey]metaEntry
}

// NewMemoryVault creates an empty in-memory vault.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:     name,
		blobs:    make(map[string][]byte),
		metadata: make(map[metaKey]metaEntry),
	}
}

// readSized reads exactly size bytes' worth of r or reports the mismatch.
func readSized(r io.Reader, size int64, what string) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", what, err)
	}
	if int64(len(data)) != size {
		return nil, fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}
	return data, nil
}

// PutContent stores a payload blob. A checksum already present keeps its
// first blob.
func (m *MemoryVault) PutContent(checksum string, r io.Reader, size int64) error {
	if err := validName(checksum); err != nil {
		return err
	}
	data, err := readSized(r, size, kindContent)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[checksum]; !ok {
		m.blobs[checksum] = data
	}
	return nil
}

func (m *MemoryVault) GetContent(checksum string, w io.Writer) error {
	m.mu.RLock()
	data, ok := m.blobs[checksum]
	m.mu.RUnlock()
	if !ok {
		return contentNotFound(checksum)
	}
	_, err := w.Write(data)
	return err
}

// PutMetadata replaces the item and its version.
func (m *MemoryVault) PutMetadata(actor string, name string, r io.Reader, size int64, version int64) error {
	key, err := newMetaKey(actor, name)
	if err != nil {
		return err
	}
	data, err := readSized(r, size, kindMetadata)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.metadata[key] = metaEntry{data: data, version: version}
	m.mu.Unlock()
	return nil
}

func (m *MemoryVault) GetMetadata(actor string, name string, w io.Writer) error {
	m.mu.RLock()
	entry, ok := m.metadata[metaKey{actor, name}]
	m.mu.RUnlock()
	if !ok {
		return metadataNotFound(actor, name)
	}
	if _, err := io.Copy(w, bytes.NewReader(entry.data)); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// GetMetadataVersion returns 0 if nothing has been stored for actor/name.
func (m *MemoryVault) GetMetadataVersion(actor string, name string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metadata[metaKey{actor, name}].version, nil
}

func (m *MemoryVault) ValidateSetup() error {
	return nil
}

func newMetaKey(actor, name string) (metaKey, error) {
	if err := validName(actor); err != nil {
		return metaKey{}, err
	}
	if err := validName(name); err != nil {
		return metaKey{}, err
	}
	return metaKey{actor, name}, nil
}

var _ eco.Vault = (*MemoryVault)(nil)
