package eco

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"ecotermo/internal/asset"
	"ecotermo/internal/csvimport"
)

// Options configures a Service.
type Options struct {
	// Mode is used by ImportCSV when no mode is given.
	Mode Mode
	// History enables the snapshot taken before a replace-all import.
	History bool
	// BatchSize bounds the operations sent per Store.BatchWrite call.
	BatchSize int
	// Concurrency bounds the chunks in flight at once.
	Concurrency int
	Rules       asset.Rules
	// Actor is recorded on every snapshot.
	Actor      string
	OnProgress ProgressFunc
}

// DefaultOptions returns replace-all imports with history, 400 operations
// per chunk and the default status rules.
func DefaultOptions() Options {
	return Options{
		Mode:        ModeReplace,
		History:     true,
		BatchSize:   DefaultBatchSize,
		Concurrency: 1,
		Rules:       asset.DefaultRules(),
	}
}

// Service is the orchestration layer over the asset register: it imports
// spreadsheets, keeps the snapshot history and serves manual edits.
//
// The service caches the active record set in memory. The cache is replaced
// only after a write has fully reached the store.
type Service struct {
	store     Store
	vault     Vault
	encryptor Encryptor
	logger    Logger
	clock     Clock
	idgen     IDGenerator
	opts      Options
	parser    *csvimport.Parser

	// guard serializes every write: imports, restores, clears and manual edits.
	guard sync.Mutex

	mu      sync.RWMutex
	current []asset.Record
	loaded  bool
}

// NewService creates a Service. encryptor may be nil, in which case
// snapshot payloads are stored unencrypted.
func NewService(store Store, vault Vault, encryptor Encryptor, logger Logger, clock Clock, idgen IDGenerator, opts Options) *Service {
	if opts.Mode == "" {
		opts.Mode = ModeReplace
	}
	if opts.Rules == (asset.Rules{}) {
		opts.Rules = asset.DefaultRules()
	}
	return &Service{
		store:     store,
		vault:     vault,
		encryptor: encryptor,
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
		opts:      opts,
		parser:    csvimport.NewParser(opts.Rules),
	}
}

// ImportResult summarizes an import.
type ImportResult struct {
	Mode    Mode
	Total   int
	New     int
	Updated int
	Deleted int
	// SnapshotID is set when a pre-import snapshot was taken.
	SnapshotID string
	// SnapshotErr is set when the pre-import snapshot failed. The import
	// itself still succeeded.
	SnapshotErr *SnapshotWriteError
}

// Load reads the active record set from the store, replacing the cache.
// On failure the cache is left untouched.
func (s *Service) Load(ctx context.Context) error {
	docs, err := s.store.GetAll(ctx, CollectionAssets)
	if err != nil {
		return &FetchError{Collection: CollectionAssets, Err: err}
	}

	records := make(map[string]asset.Record, len(docs))
	for id, body := range docs {
		r, err := decodeRecord(id, body)
		if err != nil {
			return err
		}
		records[id] = r
	}

	s.mu.Lock()
	s.current = sortedRecords(records)
	s.loaded = true
	s.mu.Unlock()

	s.logger.Debug("records loaded", "count", len(records))
	return nil
}

func (s *Service) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.Load(ctx)
}

// Records returns a copy of the cached record set, ordered by id.
func (s *Service) Records() []asset.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.current)
}

// ImportCSV parses text and reconciles it into the store. An empty mode uses
// the configured default.
//
// A parse failure aborts before any write. In replace mode with history
// enabled, the current records are snapshotted first; a failed snapshot is
// reported on the result and does not stop the import.
func (s *Service) ImportCSV(ctx context.Context, text string, mode Mode) (*ImportResult, error) {
	if !s.guard.TryLock() {
		return nil, ErrOperationInProgress
	}
	defer s.guard.Unlock()

	if mode == "" {
		mode = s.opts.Mode
	}

	parsed, err := s.parser.Parse(text)
	if err != nil {
		return nil, err
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	current := s.Records()
	if len(parsed) == 0 {
		s.logger.Warn("import file has no usable rows", "mode", mode, "current", len(current))
	}

	result := &ImportResult{Mode: mode, Total: len(parsed)}

	if mode == ModeReplace && s.opts.History && len(current) > 0 {
		info, err := s.CreateSnapshot(ctx, current, s.opts.Actor)
		if err != nil {
			result.SnapshotErr = &SnapshotWriteError{Err: err}
			s.logger.Warn("pre-import snapshot failed, importing without backup", "error", err)
		} else {
			result.SnapshotID = info.ID
		}
	}

	plan, err := Reconcile(current, parsed, mode, s.idgen, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("reconciling import: %w", err)
	}
	if err := s.apply(ctx, plan); err != nil {
		return nil, err
	}

	result.New, result.Updated, result.Deleted = plan.New, plan.Updated, plan.Deleted
	s.logger.Info("import complete", "mode", mode, "new", result.New, "updated", result.Updated, "deleted", result.Deleted)
	return result, nil
}

// apply writes plan in chunks and, once every chunk succeeded, makes its
// records the cached set.
func (s *Service) apply(ctx context.Context, plan *Plan) error {
	if err := writeChunks(ctx, s.store, plan.Ops, s.opts.BatchSize, s.opts.Concurrency, s.opts.OnProgress); err != nil {
		s.logger.Error("batch write failed", "error", err)
		return err
	}
	s.mu.Lock()
	s.current = plan.Records
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// SaveAsset creates a record (empty ID) or overwrites an existing one.
// Status is derived from the day count when empty and the food-safety flag
// is always recomputed.
func (s *Service) SaveAsset(ctx context.Context, r asset.Record) (asset.Record, error) {
	if !s.guard.TryLock() {
		return asset.Record{}, ErrOperationInProgress
	}
	defer s.guard.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return asset.Record{}, err
	}

	r.Normalize()
	if r.Status == "" {
		r.Status = s.opts.Rules.StatusFromDays(r.DaysSinceService)
	}
	r.Derive()
	if err := r.Validate(); err != nil {
		return asset.Record{}, err
	}

	now := s.clock.Now()
	if r.ID == "" {
		r.ID = s.idgen.New()
		r.CreatedAt = stamp(now)
		r.UpdatedAt = nil
	} else {
		existing, ok := s.find(r.ID)
		if !ok {
			return asset.Record{}, fmt.Errorf("%w: %s", ErrAssetNotFound, r.ID)
		}
		r.CreatedAt = existing.CreatedAt
		r.ImportedAt = existing.ImportedAt
		r.UpdatedAt = stamp(now)
	}

	body, err := encodeRecord(r)
	if err != nil {
		return asset.Record{}, err
	}
	op := WriteOp{Path: DocPath(CollectionAssets, r.ID), Kind: WriteSet, Value: body}
	if err := s.store.BatchWrite(ctx, []WriteOp{op}); err != nil {
		return asset.Record{}, fmt.Errorf("saving asset %q: %w", r.Tag, err)
	}

	s.mu.Lock()
	if i := s.indexOf(r.ID); i >= 0 {
		s.current[i] = r
	} else {
		s.current = append(s.current, r)
	}
	s.mu.Unlock()

	s.logger.Info("asset saved", "id", r.ID, "tag", r.Tag)
	return r, nil
}

// DeleteAsset removes one record.
func (s *Service) DeleteAsset(ctx context.Context, id string) error {
	if !s.guard.TryLock() {
		return ErrOperationInProgress
	}
	defer s.guard.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	if _, ok := s.find(id); !ok {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}

	if err := s.store.Remove(ctx, DocPath(CollectionAssets, id)); err != nil {
		return fmt.Errorf("deleting asset %s: %w", id, err)
	}

	s.mu.Lock()
	if i := s.indexOf(id); i >= 0 {
		s.current = slices.Delete(s.current, i, i+1)
	}
	s.mu.Unlock()

	s.logger.Info("asset deleted", "id", id)
	return nil
}

// ClearAssets deletes every record. Returns the number deleted.
func (s *Service) ClearAssets(ctx context.Context) (int, error) {
	if !s.guard.TryLock() {
		return 0, ErrOperationInProgress
	}
	defer s.guard.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return 0, err
	}
	plan, err := replacePlan(s.Records(), nil, s.idgen)
	if err != nil {
		return 0, err
	}
	if err := s.apply(ctx, plan); err != nil {
		return 0, err
	}

	s.logger.Info("assets cleared", "deleted", plan.Deleted)
	return plan.Deleted, nil
}

// FindByTag returns the records carrying tag.
func (s *Service) FindByTag(ctx context.Context, tag string) ([]asset.Record, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	var out []asset.Record
	for _, r := range s.Records() {
		if r.Tag == tag {
			out = append(out, r)
		}
	}
	return out, nil
}

// ExportCSV writes the current records as a semicolon-delimited CSV file.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	return csvimport.ExportCSV(w, s.Records())
}

// ExportXLSX writes the current records as a workbook.
func (s *Service) ExportXLSX(ctx context.Context, w io.Writer) error {
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	return csvimport.ExportXLSX(w, s.Records())
}

// Summary computes the dashboard figures, optionally for one area.
func (s *Service) Summary(ctx context.Context, area string) (*asset.Summary, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	sum := asset.Summarize(s.Records(), area)
	return &sum, nil
}

func (s *Service) find(id string) (asset.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.current[i], true
	}
	return asset.Record{}, false
}

// indexOf requires s.mu to be held.
func (s *Service) indexOf(id string) int {
	return slices.IndexFunc(s.current, func(r asset.Record) bool { return r.ID == id })
}

// IsLocked reports whether err means a passphrase is needed.
func IsLocked(err error) bool {
	return errors.Is(err, ErrSnapshotLocked)
}
