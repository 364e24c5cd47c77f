package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"

	"ecotermo/internal/config"
	"ecotermo/internal/eco"
)

// Vault metadata names used to back up the key pair.
const (
	PublicKeyName  = "public_key"
	PrivateKeyName = "private_key"
)

// ErrKeysExist is returned by Setup when a key pair is already present.
// Replacing it would make every encrypted snapshot unreadable.
var ErrKeysExist = errors.New("encryption keys already exist")

// AgeEncryptor encrypts snapshot payloads to an X25519 recipient. The public
// key is stored in plaintext; the private key is age-encrypted with the
// user's passphrase (scrypt).
type AgeEncryptor struct {
	publicKeyPath  string
	privateKeyPath string
}

var _ eco.Encryptor = (*AgeEncryptor)(nil)

// NewAgeEncryptor creates a new AgeEncryptor from configuration.
func NewAgeEncryptor(cfg config.EncryptionConfig) *AgeEncryptor {
	return &AgeEncryptor{
		publicKeyPath:  cfg.PublicKeyPath,
		privateKeyPath: cfg.PrivateKeyPath,
	}
}

// Setup generates a key pair and writes both key files.
func (e *AgeEncryptor) Setup(passphrase string) error {
	if passphrase == "" {
		return fmt.Errorf("passphrase must not be empty")
	}
	if e.IsConfigured() {
		return ErrKeysExist
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating key pair: %w", err)
	}

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("creating scrypt recipient: %w", err)
	}
	var sealed bytes.Buffer
	w, err := age.Encrypt(&sealed, recipient)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.WriteString(w, identity.String()+"\n"); err != nil {
		return fmt.Errorf("writing encrypted private key: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing encrypted private key: %w", err)
	}

	if err := writeKey(e.publicKeyPath, []byte(identity.Recipient().String()+"\n"), 0644); err != nil {
		return fmt.Errorf("writing public key: %w", err)
	}
	if err := writeKey(e.privateKeyPath, sealed.Bytes(), 0600); err != nil {
		return fmt.Errorf("writing private key: %w", err)
	}
	return nil
}

// Encrypt reads plaintext from r and writes ciphertext for the stored public
// key to w. No passphrase is needed.
func (e *AgeEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	recipient, err := e.loadRecipient()
	if err != nil {
		return fmt.Errorf("loading public key: %w", err)
	}

	encWriter, err := age.Encrypt(w, recipient)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.Copy(encWriter, r); err != nil {
		return fmt.Errorf("encrypting data: %w", err)
	}
	if err := encWriter.Close(); err != nil {
		return fmt.Errorf("finalizing encryption: %w", err)
	}
	return nil
}

// Unlock opens the private key with the passphrase.
func (e *AgeEncryptor) Unlock(passphrase string) (eco.DecryptionContext, error) {
	sealed, err := os.ReadFile(e.privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading private key file: %w", err)
	}

	scrypt, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}
	decReader, err := age.Decrypt(bytes.NewReader(sealed), scrypt)
	if err != nil {
		return nil, fmt.Errorf("decrypting private key: %w", err)
	}

	identities, err := age.ParseIdentities(decReader)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	if len(identities) == 0 {
		return nil, fmt.Errorf("no identities found in private key")
	}

	return &AgeDecryptionContext{identity: identities[0]}, nil
}

// IsConfigured returns true if both key files exist.
func (e *AgeEncryptor) IsConfigured() bool {
	for _, p := range []string{e.publicKeyPath, e.privateKeyPath} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// BackupKeys copies both key files into the vault as actor metadata. The
// private key is stored in its passphrase-sealed form.
func (e *AgeEncryptor) BackupKeys(v eco.Vault, actor string) error {
	for _, k := range e.keyFiles() {
		data, err := os.ReadFile(k.path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", k.name, err)
		}
		if err := v.PutMetadata(actor, k.name, bytes.NewReader(data), int64(len(data)), 1); err != nil {
			return fmt.Errorf("backing up %s: %w", k.name, err)
		}
	}
	return nil
}

// RestoreKeys writes the key pair backed up in the vault to the configured
// paths. Existing local keys are never replaced.
func (e *AgeEncryptor) RestoreKeys(v eco.Vault, actor string) error {
	if e.IsConfigured() {
		return ErrKeysExist
	}
	for _, k := range e.keyFiles() {
		var buf bytes.Buffer
		if err := v.GetMetadata(actor, k.name, &buf); err != nil {
			return fmt.Errorf("fetching %s: %w", k.name, err)
		}
		if err := writeKey(k.path, buf.Bytes(), k.perm); err != nil {
			return fmt.Errorf("writing %s: %w", k.name, err)
		}
	}
	return nil
}

type keyFile struct {
	name string
	path string
	perm os.FileMode
}

func (e *AgeEncryptor) keyFiles() []keyFile {
	return []keyFile{
		{name: PublicKeyName, path: e.publicKeyPath, perm: 0644},
		{name: PrivateKeyName, path: e.privateKeyPath, perm: 0600},
	}
}

func (e *AgeEncryptor) loadRecipient() (age.Recipient, error) {
	pubData, err := os.ReadFile(e.publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading public key: %w", err)
	}

	recipients, err := age.ParseRecipients(bytes.NewReader(pubData))
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("no recipients found in public key file")
	}
	return recipients[0], nil
}

func writeKey(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}
	return os.WriteFile(path, data, perm)
}

// AgeDecryptionContext holds an unlocked age identity for decrypting data.
type AgeDecryptionContext struct {
	identity age.Identity
}

var _ eco.DecryptionContext = (*AgeDecryptionContext)(nil)

// Decrypt reads ciphertext from r and writes plaintext to w.
func (c *AgeDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	decReader, err := age.Decrypt(r, c.identity)
	if err != nil {
		return fmt.Errorf("creating decrypted reader: %w", err)
	}
	if _, err := io.Copy(w, decReader); err != nil {
		return fmt.Errorf("decrypting data: %w", err)
	}
	return nil
}
