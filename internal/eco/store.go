package eco

import (
	"context"
	"strings"
)

// Collections held by the Store.
const (
	CollectionAssets  = "assets"
	CollectionHistory = "history"
)

// WriteKind is the operation applied by a WriteOp.
type WriteKind string

const (
	WriteSet    WriteKind = "set"
	WriteDelete WriteKind = "delete"
)

// WriteOp is one document write within a batch.
// Path has the form "collection/id"; Value is ignored for deletes.
type WriteOp struct {
	Path  string
	Kind  WriteKind
	Value []byte
}

// Store provides an interface for the document store holding the asset
// register and snapshot metadata.
type Store interface {
	// GetAll returns every document of a collection keyed by id.
	// A collection with no documents yields an empty map, not an error.
	GetAll(ctx context.Context, collection string) (map[string][]byte, error)

	// BatchWrite applies ops as one unit. Callers bound the size of ops.
	BatchWrite(ctx context.Context, ops []WriteOp) error

	// Remove deletes a single document. Removing a missing document is not
	// an error.
	Remove(ctx context.Context, path string) error
}

// DocPath joins a collection and a document id.
func DocPath(collection, id string) string {
	return collection + "/" + id
}

// SplitPath splits a document path into collection and id.
// ok is false if path has no separator.
func SplitPath(path string) (collection, id string, ok bool) {
	collection, id, ok = strings.Cut(path, "/")
	if !ok || collection == "" || id == "" {
		return "", "", false
	}
	return collection, id, true
}
