package eco

import (
	"errors"
	"fmt"
)

var (
	// ErrOperationInProgress is returned when a write (import, restore, clear
	// or manual edit) is started while another one is running.
	ErrOperationInProgress = errors.New("another import, restore or edit is in progress")

	// ErrSnapshotNotFound is returned for an unknown snapshot id.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrSnapshotLocked is returned when an encrypted snapshot is read
	// without a decryption context.
	ErrSnapshotLocked = errors.New("snapshot is encrypted but no passphrase was provided")

	// ErrPayloadNotFound is returned when a snapshot's metadata exists but
	// its payload blob is missing from the vault.
	ErrPayloadNotFound = errors.New("snapshot payload not found in vault")

	// ErrAssetNotFound is returned when deleting or editing an unknown record.
	ErrAssetNotFound = errors.New("asset not found")
)

// FetchError reports a failure to read a collection from the store. The
// in-memory record set is left untouched.
type FetchError struct {
	Collection string
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.Collection, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SnapshotWriteError reports a failed pre-import snapshot. It never aborts
// the import that triggered it.
type SnapshotWriteError struct {
	Err error
}

func (e *SnapshotWriteError) Error() string {
	return fmt.Sprintf("writing snapshot: %v", e.Err)
}

func (e *SnapshotWriteError) Unwrap() error { return e.Err }

// BatchWriteError aggregates chunk failures of a batched write. Chunks
// counted in Applied were committed before the failure.
type BatchWriteError struct {
	Chunks  int
	Applied int
	Err     error
}

func (e *BatchWriteError) Error() string {
	return fmt.Sprintf("batch write failed (%d of %d chunks applied): %v", e.Applied, e.Chunks, e.Err)
}

func (e *BatchWriteError) Unwrap() error { return e.Err }
