// Package payload encodes snapshot record sets for storage in a vault.
// A payload is a JSON document compressed with zstd.
package payload

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"

	"ecotermo/internal/asset"
)

// Compression names the codec recorded in snapshot metadata.
const Compression = "zstd"

// Version is the current document layout.
const Version = 1

type document struct {
	Version int            `json:"version"`
	Records []asset.Record `json:"records"`
}

// Encode writes records to w.
func Encode(w io.Writer, records []asset.Record) error {
	if records == nil {
		records = []asset.Record{}
	}

	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return fmt.Errorf("creating zstd writer: %w", err)
	}
	if err := json.NewEncoder(zw).Encode(document{Version: Version, Records: records}); err != nil {
		zw.Close()
		return fmt.Errorf("encoding records: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("closing zstd writer: %w", err)
	}
	return nil
}

// Decode reads a payload written by Encode.
func Decode(r io.Reader) ([]asset.Record, error) {
	zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("creating zstd reader: %w", err)
	}
	defer zr.Close()

	var doc document
	if err := json.NewDecoder(zr).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding records: %w", err)
	}
	if doc.Version != Version {
		return nil, fmt.Errorf("unsupported payload version %d", doc.Version)
	}
	return doc.Records, nil
}
