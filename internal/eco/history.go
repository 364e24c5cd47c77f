package eco

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"ecotermo/internal/asset"
	"ecotermo/internal/payload"
)

// DisplayDateLayout renders snapshot times day first, as shown to users.
const DisplayDateLayout = "02/01/2006 15:04:05"

// SnapshotInfo is the metadata document of a snapshot. The records
// themselves live in the vault, addressed by Payload.Checksum.
type SnapshotInfo struct {
	ID            string      `json:"-"`
	Timestamp     time.Time   `json:"timestamp"`
	FormattedDate string      `json:"formattedDate"`
	Actor         string      `json:"actor"`
	RecordCount   int         `json:"recordCount"`
	Payload       PayloadInfo `json:"payload"`
}

// PayloadInfo describes the stored payload blob.
type PayloadInfo struct {
	Checksum    string `json:"checksum"`
	Size        int64  `json:"size"`
	Encrypted   bool   `json:"encrypted"`
	Compression string `json:"compression"`
}

// Snapshot is a snapshot together with its records.
type Snapshot struct {
	SnapshotInfo
	Records []asset.Record
}

// CreateSnapshot stores records as a new immutable snapshot. The payload is
// uploaded before the metadata document is written, so a failure leaves at
// worst an unreferenced blob in the vault.
func (s *Service) CreateSnapshot(ctx context.Context, records []asset.Record, actor string) (*SnapshotInfo, error) {
	var plain bytes.Buffer
	if err := payload.Encode(&plain, records); err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}

	data := plain.Bytes()
	encrypted := false
	if s.encryptor != nil {
		var sealed bytes.Buffer
		if err := s.encryptor.Encrypt(bytes.NewReader(data), &sealed); err != nil {
			return nil, fmt.Errorf("encrypting payload: %w", err)
		}
		data = sealed.Bytes()
		encrypted = true
	}

	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])
	if err := s.vault.PutContent(checksum, bytes.NewReader(data), int64(len(data))); err != nil {
		return nil, fmt.Errorf("uploading payload to vault: %w", err)
	}

	now := s.clock.Now()
	info := &SnapshotInfo{
		ID:            s.idgen.New(),
		Timestamp:     now,
		FormattedDate: now.Format(DisplayDateLayout),
		Actor:         actor,
		RecordCount:   len(records),
		Payload: PayloadInfo{
			Checksum:    checksum,
			Size:        int64(len(data)),
			Encrypted:   encrypted,
			Compression: payload.Compression,
		},
	}

	body, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot metadata: %w", err)
	}
	op := WriteOp{Path: DocPath(CollectionHistory, info.ID), Kind: WriteSet, Value: body}
	if err := s.store.BatchWrite(ctx, []WriteOp{op}); err != nil {
		return nil, fmt.Errorf("writing snapshot metadata: %w", err)
	}

	s.logger.Info("snapshot created", "id", info.ID, "records", info.RecordCount, "checksum", checksum)
	return info, nil
}

// ListHistory returns snapshot metadata, newest first.
func (s *Service) ListHistory(ctx context.Context) ([]*SnapshotInfo, error) {
	docs, err := s.store.GetAll(ctx, CollectionHistory)
	if err != nil {
		return nil, &FetchError{Collection: CollectionHistory, Err: err}
	}

	infos := make([]*SnapshotInfo, 0, len(docs))
	for id, body := range docs {
		info, err := decodeSnapshotInfo(id, body)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}

	slices.SortFunc(infos, func(a, b *SnapshotInfo) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return infos, nil
}

// SnapshotInfo returns the metadata of one snapshot.
func (s *Service) SnapshotInfo(ctx context.Context, id string) (*SnapshotInfo, error) {
	docs, err := s.store.GetAll(ctx, CollectionHistory)
	if err != nil {
		return nil, &FetchError{Collection: CollectionHistory, Err: err}
	}
	body, ok := docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	return decodeSnapshotInfo(id, body)
}

// GetSnapshot loads a snapshot and its records. dc is required for
// encrypted snapshots and ignored otherwise.
func (s *Service) GetSnapshot(ctx context.Context, id string, dc DecryptionContext) (*Snapshot, error) {
	info, err := s.SnapshotInfo(ctx, id)
	if err != nil {
		return nil, err
	}
	if info.Payload.Encrypted && dc == nil {
		return nil, ErrSnapshotLocked
	}

	var stored bytes.Buffer
	if err := s.vault.GetContent(info.Payload.Checksum, &stored); err != nil {
		return nil, fmt.Errorf("retrieving payload of snapshot %s: %w", id, err)
	}
	sum := sha256.Sum256(stored.Bytes())
	if got := hex.EncodeToString(sum[:]); got != info.Payload.Checksum {
		return nil, fmt.Errorf("payload checksum mismatch for snapshot %s: got %s", id, got)
	}

	plain := &stored
	if info.Payload.Encrypted {
		plain = new(bytes.Buffer)
		if err := dc.Decrypt(bytes.NewReader(stored.Bytes()), plain); err != nil {
			return nil, fmt.Errorf("decrypting payload: %w", err)
		}
	}

	records, err := payload.Decode(plain)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", id, err)
	}
	return &Snapshot{SnapshotInfo: *info, Records: records}, nil
}

// DeleteHistory removes a snapshot's metadata. The payload blob is content
// addressed and stays in the vault.
func (s *Service) DeleteHistory(ctx context.Context, id string) error {
	if err := s.store.Remove(ctx, DocPath(CollectionHistory, id)); err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", id, err)
	}
	s.logger.Info("snapshot deleted", "id", id)
	return nil
}

func decodeSnapshotInfo(id string, body []byte) (*SnapshotInfo, error) {
	var info SnapshotInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", id, err)
	}
	info.ID = id
	return &info, nil
}
