package vault

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ecotermo/internal/eco"
)

// FileSystemVault stores content and metadata as files:
//
//	<root>/
//	  content/
//	    <checksum>          (snapshot payloads, named by SHA-256)
//	  metadata/
//	    <actor>/
//	      <name>            (database replica, key files)
//	      <name>.version
type FileSystemVault struct {
	name        string
	root        string
	contentDir  string
	metadataDir string
}

// NewFileSystemVault creates a new filesystem vault rooted at the given path.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	contentDir := filepath.Join(root, "content")
	metadataDir := filepath.Join(root, "metadata")

	if err := os.MkdirAll(contentDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create content directory: %w", err)
	}
	if err := os.MkdirAll(metadataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create metadata directory: %w", err)
	}

	return &FileSystemVault{
		name:        name,
		root:        root,
		contentDir:  contentDir,
		metadataDir: metadataDir,
	}, nil
}

// PutContent stores content identified by its checksum. Existing content is
// kept; the reader is still drained and its size checked.
func (v *FileSystemVault) PutContent(checksum string, r io.Reader, size int64) error {
	if err := validName(checksum); err != nil {
		return err
	}
	destPath := filepath.Join(v.contentDir, checksum)

	if _, err := os.Stat(destPath); err == nil {
		written, err := io.Copy(io.Discard, r)
		if err != nil {
			return fmt.Errorf("failed to read content: %w", err)
		}
		if written != size {
			return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
		}
		return nil
	}

	return writeFileAtomic(destPath, r, size)
}

// GetContent retrieves content by checksum and writes it to w.
func (v *FileSystemVault) GetContent(checksum string, w io.Writer) error {
	if err := validName(checksum); err != nil {
		return err
	}
	return readFile(filepath.Join(v.contentDir, checksum), w, contentNotFound(checksum))
}

// PutMetadata stores a metadata item along with its version marker.
func (v *FileSystemVault) PutMetadata(actor string, name string, r io.Reader, size int64, version int64) error {
	dir, err := v.actorDir(actor, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}

	if err := writeFileAtomic(filepath.Join(dir, name), r, size); err != nil {
		return err
	}

	versionData := strconv.FormatInt(version, 10)
	return writeFileAtomic(filepath.Join(dir, name+".version"), strings.NewReader(versionData), int64(len(versionData)))
}

// GetMetadataVersion returns 0 if no version file exists.
func (v *FileSystemVault) GetMetadataVersion(actor string, name string) (int64, error) {
	dir, err := v.actorDir(actor, name)
	if err != nil {
		return 0, err
	}
	data, err := os.ReadFile(filepath.Join(dir, name+".version"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading version file: %w", err)
	}

	version, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing version: %w", err)
	}
	return version, nil
}

// GetMetadata retrieves a metadata item and writes it to w.
func (v *FileSystemVault) GetMetadata(actor string, name string, w io.Writer) error {
	dir, err := v.actorDir(actor, name)
	if err != nil {
		return err
	}
	return readFile(filepath.Join(dir, name), w, metadataNotFound(actor, name))
}

// ValidateSetup verifies that the vault directories are accessible.
func (v *FileSystemVault) ValidateSetup() error {
	for _, dir := range []string{v.root, v.contentDir, v.metadataDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("vault directory not accessible: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path is not a directory: %s", dir)
		}
	}
	return nil
}

func (v *FileSystemVault) actorDir(actor, name string) (string, error) {
	if err := validName(actor); err != nil {
		return "", err
	}
	if err := validName(name); err != nil {
		return "", err
	}
	return filepath.Join(v.metadataDir, actor), nil
}

// validName rejects names that would escape the vault directory.
func validName(s string) error {
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("invalid vault name %q", s)
	}
	return nil
}

// writeFileAtomic writes data from r to destPath via a temp file and rename.
func writeFileAtomic(destPath string, r io.Reader, expectedSize int64) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

func readFile(srcPath string, w io.Writer, notFound error) error {
	f, err := os.Open(srcPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return notFound
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return nil
}

// Compile-time check that FileSystemVault implements eco.Vault interface
var _ eco.Vault = (*FileSystemVault)(nil)
