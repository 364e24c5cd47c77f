// Package vault stores snapshot payloads and database replicas.
//
// Content is addressed by checksum and never overwritten. Metadata items are
// named per actor ("db", "public_key", "private_key") and carry a version.
package vault

import (
	"errors"
	"fmt"

	"ecotermo/internal/eco"
)

// ErrNotFound is returned when a content blob or metadata item is missing.
var ErrNotFound = errors.New("not found in vault")

const (
	kindContent  = "content"
	kindMetadata = "metadata"
)

// NotFoundError names the missing item. It matches ErrNotFound, and a
// missing content blob also matches eco.ErrPayloadNotFound.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Key, ErrNotFound)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound || (e.Kind == kindContent && target == eco.ErrPayloadNotFound)
}

func contentNotFound(checksum string) error {
	return &NotFoundError{Kind: kindContent, Key: checksum}
}

func metadataNotFound(actor, name string) error {
	return &NotFoundError{Kind: kindMetadata, Key: actor + "/" + name}
}
