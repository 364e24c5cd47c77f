package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"ecotermo/internal/asset"
	"ecotermo/internal/config"
	"ecotermo/internal/database"
	"ecotermo/internal/eco"
	"ecotermo/internal/encryption"
	"ecotermo/internal/metrics"
	"ecotermo/internal/vault"
)

// DBMetadataName is the vault metadata item holding the database replica.
const DBMetadataName = "db"

// PassphraseFunc obtains the key passphrase. It is only called when an
// encrypted snapshot has to be read.
type PassphraseFunc func() (string, error)

// Options carries the runtime hooks the CLI passes in.
type Options struct {
	// Console receives warnings and errors; nil disables console logging.
	Console io.Writer
	// OnProgress is called after each committed import chunk.
	OnProgress eco.ProgressFunc
}

// EcoApp is the application layer between the CLI and eco.Service.
// It constructs all dependencies from config, exposes high-level operations
// for the commands, and manages the DB lifecycle on Close.
type EcoApp struct {
	cfg       *config.Config
	store     *database.SQLiteStore
	vault     eco.Vault
	encryptor eco.Encryptor
	service   *eco.Service
	metrics   metrics.Recorder
	op        *Operation
	logger    *slogAdapter
	logFile   *os.File
}

// NewEcoApp creates a fully wired EcoApp from the given config.
// operation identifies the CLI command being run (e.g. "Import", "Restore").
// The caller must call Close when done.
func NewEcoApp(cfg *config.Config, operation, parameters string, opts Options) (*EcoApp, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	v, err := vault.NewVaultFromConfig(cfg.Vaults[0])
	if err != nil {
		return nil, fmt.Errorf("creating vault: %w", err)
	}

	store, err := database.NewStoreFromConfig(cfg.Database, cfg.Actor)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	// Check local DB version against remote vault version.
	remoteVersion, err := v.GetMetadataVersion(cfg.Actor, DBMetadataName)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("checking remote metadata version: %w", err)
	}
	localMax, err := store.MaxOperationID()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("checking local metadata version: %w", err)
	}
	if remoteVersion > localMax {
		store.Close()
		return nil, fmt.Errorf("local database is behind remote (local=%d, remote=%d): restore from vault or re-initialize", localMax, remoteVersion)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	l, logFile, err := newLogger(cfg.LogDir, opID, opts.Console)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: l}

	if age, ok := enc.(*encryption.AgeEncryptor); ok && !age.IsConfigured() {
		switch err := age.RestoreKeys(v, cfg.Actor); {
		case err == nil:
			logger.Info("encryption keys restored from vault")
		case errors.Is(err, vault.ErrNotFound):
			logger.Warn("encryption is enabled but no keys exist; run `ecotermo config keys init`")
		default:
			logger.Warn("restoring encryption keys failed", "error", err)
		}
	}

	svcOpts := eco.Options{
		Mode:        eco.Mode(cfg.Import.Mode),
		History:     cfg.Import.History,
		BatchSize:   cfg.Import.BatchSize,
		Concurrency: cfg.Import.Concurrency,
		Rules: asset.Rules{
			WarningAfterDays: cfg.Import.WarningAfterDays,
			AlertAfterDays:   cfg.Import.AlertAfterDays,
			StatusSource:     asset.StatusSource(cfg.Import.StatusSource),
		},
		Actor:      cfg.Actor,
		OnProgress: opts.OnProgress,
	}
	svc := eco.NewService(store, v, enc, logger, eco.RealClock{}, eco.UUIDGenerator{}, svcOpts)

	return &EcoApp{
		cfg:       cfg,
		store:     store,
		vault:     v,
		encryptor: enc,
		service:   svc,
		metrics:   metrics.NewRecorder(cfg.Metrics),
		op:        NewOperation(operation, parameters),
		logger:    logger,
		logFile:   logFile,
	}, nil
}

// persistOperation saves the operation to the database, giving it an auto-increment ID.
// This should only be called for DB-mutating commands.
func (a *EcoApp) persistOperation() error {
	if a.op.Persisted() {
		return nil
	}
	dbOp, err := a.store.CreateOperation(a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// Import reads a CSV file and reconciles it into the register. An empty mode
// uses the configured default.
func (a *EcoApp) Import(ctx context.Context, path string, mode string) (*eco.ImportResult, error) {
	var m eco.Mode
	if mode != "" {
		var err error
		if m, err = eco.ParseMode(mode); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := a.persistOperation(); err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := a.service.ImportCSV(ctx, string(data), m)
	label := string(m)
	if label == "" {
		label = a.cfg.Import.Mode
	}
	if err != nil {
		a.metrics.ObserveImport(label, metrics.OutcomeFailure, time.Since(start))
		return nil, a.op.Fail(err)
	}

	a.metrics.ObserveImport(string(res.Mode), metrics.OutcomeSuccess, time.Since(start))
	a.metrics.AddImportedRecords(res.New, res.Updated, res.Deleted)
	if res.SnapshotErr != nil {
		a.metrics.IncSnapshotFailures()
	}
	a.metrics.SetAssets(a.service.Records())
	return res, nil
}

// Export writes the register as "csv" or "xlsx".
func (a *EcoApp) Export(ctx context.Context, w io.Writer, format string) error {
	switch format {
	case "", "csv":
		return a.service.ExportCSV(ctx, w)
	case "xlsx":
		return a.service.ExportXLSX(ctx, w)
	default:
		return fmt.Errorf("unknown export format %q (want csv or xlsx)", format)
	}
}

// ListAssets returns the register, optionally filtered to one tag.
func (a *EcoApp) ListAssets(ctx context.Context, tag string) ([]asset.Record, error) {
	if tag != "" {
		return a.service.FindByTag(ctx, tag)
	}
	if err := a.service.Load(ctx); err != nil {
		return nil, err
	}
	return a.service.Records(), nil
}

// SaveAsset creates or updates a single record.
func (a *EcoApp) SaveAsset(ctx context.Context, r asset.Record) (asset.Record, error) {
	if err := a.persistOperation(); err != nil {
		return asset.Record{}, err
	}
	saved, err := a.service.SaveAsset(ctx, r)
	if err != nil {
		return asset.Record{}, a.op.Fail(err)
	}
	a.metrics.SetAssets(a.service.Records())
	return saved, nil
}

// DeleteAsset removes a single record by id.
func (a *EcoApp) DeleteAsset(ctx context.Context, id string) error {
	if err := a.persistOperation(); err != nil {
		return err
	}
	if err := a.service.DeleteAsset(ctx, id); err != nil {
		return a.op.Fail(err)
	}
	a.metrics.SetAssets(a.service.Records())
	return nil
}

// ClearAssets removes every record.
func (a *EcoApp) ClearAssets(ctx context.Context) (int, error) {
	if err := a.persistOperation(); err != nil {
		return 0, err
	}
	n, err := a.service.ClearAssets(ctx)
	if err != nil {
		return 0, a.op.Fail(err)
	}
	a.metrics.SetAssets(nil)
	return n, nil
}

// ListHistory returns snapshot metadata, newest first.
func (a *EcoApp) ListHistory(ctx context.Context) ([]*eco.SnapshotInfo, error) {
	return a.service.ListHistory(ctx)
}

// GetSnapshot loads a snapshot with its records, asking for the passphrase
// only if the snapshot is encrypted.
func (a *EcoApp) GetSnapshot(ctx context.Context, id string, passphrase PassphraseFunc) (*eco.Snapshot, error) {
	dc, err := a.decryptionFor(ctx, id, passphrase)
	if err != nil {
		return nil, err
	}
	return a.service.GetSnapshot(ctx, id, dc)
}

// DeleteHistory removes a snapshot from the history.
func (a *EcoApp) DeleteHistory(ctx context.Context, id string) error {
	if err := a.persistOperation(); err != nil {
		return err
	}
	if _, err := a.service.SnapshotInfo(ctx, id); err != nil {
		return a.op.Fail(err)
	}
	return a.op.Fail(a.service.DeleteHistory(ctx, id))
}

// Restore replaces the register with a snapshot's records.
func (a *EcoApp) Restore(ctx context.Context, id string, passphrase PassphraseFunc) (int, error) {
	dc, err := a.decryptionFor(ctx, id, passphrase)
	if err != nil {
		return 0, err
	}
	if err := a.persistOperation(); err != nil {
		return 0, err
	}

	n, err := a.service.Restore(ctx, id, dc)
	if err != nil {
		a.metrics.IncRestores(metrics.OutcomeFailure)
		return 0, a.op.Fail(err)
	}
	a.metrics.IncRestores(metrics.OutcomeSuccess)
	a.metrics.SetAssets(a.service.Records())
	return n, nil
}

// Compare diffs the register against a snapshot.
func (a *EcoApp) Compare(ctx context.Context, id string, opts eco.CompareOptions, passphrase PassphraseFunc) (*eco.Comparison, error) {
	dc, err := a.decryptionFor(ctx, id, passphrase)
	if err != nil {
		return nil, err
	}
	return a.service.Compare(ctx, id, opts, dc)
}

// Summary returns the dashboard figures, optionally for one area.
func (a *EcoApp) Summary(ctx context.Context, area string) (*asset.Summary, error) {
	return a.service.Summary(ctx, area)
}

// GetOperations returns the most recent operations from the operation log.
func (a *EcoApp) GetOperations(limit int) ([]*database.Operation, error) {
	return a.store.ListOperations(limit)
}

// decryptionFor unlocks the private key if snapshot id is encrypted.
func (a *EcoApp) decryptionFor(ctx context.Context, id string, passphrase PassphraseFunc) (eco.DecryptionContext, error) {
	info, err := a.service.SnapshotInfo(ctx, id)
	if err != nil {
		return nil, err
	}
	if !info.Payload.Encrypted {
		return nil, nil
	}
	if a.encryptor == nil {
		return nil, fmt.Errorf("snapshot %s is encrypted but encryption is not configured", id)
	}
	if passphrase == nil {
		return nil, eco.ErrSnapshotLocked
	}
	pass, err := passphrase()
	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}
	return a.encryptor.Unlock(pass)
}

// Close finalizes the operation and closes all resources.
// For persisted operations: finishes the operation record, backs up the DB, and uploads to vault.
// For non-persisted operations: just closes the database.
func (a *EcoApp) Close() error {
	var errs []error

	if a.op.Persisted() {
		if err := a.store.FinishOperation(a.op.ID, a.op.Status); err != nil {
			errs = append(errs, fmt.Errorf("finishing operation: %w", err))
		}

		tmpPath, err := a.snapshotDatabase()
		if err != nil {
			errs = append(errs, err)
		}
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing database: %w", err))
		}
		if tmpPath != "" {
			if err := a.uploadMetadata(tmpPath, a.op.ID); err != nil {
				errs = append(errs, err)
			}
			os.Remove(tmpPath)
		}
	} else if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}

	if err := a.metrics.Flush(); err != nil {
		errs = append(errs, err)
	}
	for _, err := range errs {
		a.logger.Error("close failed", "error", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return errors.Join(errs...)
}

// snapshotDatabase copies the database to a temp file. The empty path means
// there is nothing to upload.
func (a *EcoApp) snapshotDatabase() (string, error) {
	tmpFile, err := os.CreateTemp("", "ecotermo-db-backup-*.db")
	if err != nil {
		return "", fmt.Errorf("creating temp file for db backup: %w", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()

	if err := a.store.BackupTo(tmpPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("backing up database: %w", err)
	}
	return tmpPath, nil
}

// uploadMetadata opens the temp DB file and uploads it to the vault as metadata.
func (a *EcoApp) uploadMetadata(path string, version int64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening db backup for upload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat db backup: %w", err)
	}

	if err := a.vault.PutMetadata(a.cfg.Actor, DBMetadataName, f, info.Size(), version); err != nil {
		return fmt.Errorf("uploading metadata to vault: %w", err)
	}
	return nil
}

// InitKeys generates the age key pair and backs it up to the vault.
// It does not need a wired EcoApp: the database is never opened.
func InitKeys(cfg *config.Config, passphrase string) error {
	if cfg.Encryption.Type != "age" {
		return fmt.Errorf("encryption type is %q; set encryption.type = \"age\" first", cfg.Encryption.Type)
	}
	if len(cfg.Vaults) == 0 {
		return fmt.Errorf("no vaults configured")
	}
	v, err := vault.NewVaultFromConfig(cfg.Vaults[0])
	if err != nil {
		return fmt.Errorf("creating vault: %w", err)
	}

	enc := encryption.NewAgeEncryptor(cfg.Encryption)
	if err := enc.Setup(passphrase); err != nil {
		return fmt.Errorf("generating keys: %w", err)
	}
	if err := enc.BackupKeys(v, cfg.Actor); err != nil {
		return fmt.Errorf("keys generated but backup failed: %w", err)
	}
	return nil
}
