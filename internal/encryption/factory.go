package encryption

import (
	"fmt"

	"ecotermo/internal/config"
	"ecotermo/internal/eco"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
// Type "none" (or empty) returns a nil Encryptor: snapshots are stored
// compressed but in plaintext.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (eco.Encryptor, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "age":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
