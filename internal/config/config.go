package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for ecotermo.
type Config struct {
	// Actor identifies whoever runs the tool. It names the database file and
	// is recorded on every snapshot.
	Actor      string           `toml:"actor"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Vaults     []VaultConfig    `toml:"vaults"`
	Encryption EncryptionConfig `toml:"encryption"`
	Database   DatabaseConfig   `toml:"database"`
	Import     ImportConfig     `toml:"import"`
	Metrics    MetricsConfig    `toml:"metrics"`
}

// EncryptionConfig holds paths to the age key pair used for snapshot payloads.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "none" (default), "age" or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// VaultConfig represents configuration for a vault backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
	S3UsePathStyle    bool   `toml:"s3_use_path_style,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// DatabaseConfig represents configuration for the document store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// ImportConfig controls how spreadsheets are reconciled and how status is
// derived.
type ImportConfig struct {
	Mode             string `toml:"mode"`    // "replace" (default) or "upsert"
	History          bool   `toml:"history"` // snapshot before replace imports
	BatchSize        int    `toml:"batch_size"`
	Concurrency      int    `toml:"concurrency"`
	WarningAfterDays int    `toml:"warning_after_days"`
	AlertAfterDays   int    `toml:"alert_after_days"`
	StatusSource     string `toml:"status_source"` // "days" (default) or "text"
}

// MetricsConfig enables the Prometheus textfile written after each command.
type MetricsConfig struct {
	Enabled      bool   `toml:"enabled"`
	TextfilePath string `toml:"textfile_path,omitempty"`
}

// DefaultImportConfig returns replace imports with history, 400 operations
// per batch and the 6/8 day thresholds.
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		Mode:             "replace",
		History:          true,
		BatchSize:        400,
		Concurrency:      1,
		WarningAfterDays: 6,
		AlertAfterDays:   8,
		StatusSource:     "days",
	}
}

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(actor, baseDir string) *Config {
	return &Config{
		Actor:   actor,
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Vaults: []VaultConfig{
			{Type: "filesystem", Name: "local", FSVaultRoot: filepath.Join(baseDir, "vault")},
		},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "ecotermo.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "ecotermo.key"),
		},
		Database: DatabaseConfig{Type: "sqlite", DataDir: filepath.Join(baseDir, "db")},
		Import:   DefaultImportConfig(),
		Metrics:  MetricsConfig{TextfilePath: filepath.Join(baseDir, "metrics", "ecotermo.prom")},
	}
}

// ApplyDefaults fills unset import settings and the log directory.
func (c *Config) ApplyDefaults() {
	d := DefaultImportConfig()
	if c.Import.Mode == "" {
		c.Import.Mode = d.Mode
	}
	if c.Import.BatchSize == 0 {
		c.Import.BatchSize = d.BatchSize
	}
	if c.Import.Concurrency == 0 {
		c.Import.Concurrency = d.Concurrency
	}
	if c.Import.WarningAfterDays == 0 && c.Import.AlertAfterDays == 0 {
		c.Import.WarningAfterDays = d.WarningAfterDays
		c.Import.AlertAfterDays = d.AlertAfterDays
	}
	if c.Import.StatusSource == "" {
		c.Import.StatusSource = d.StatusSource
	}
	if c.LogDir == "" && c.BaseDir != "" {
		c.LogDir = filepath.Join(c.BaseDir, "log")
	}
}

// Validate checks the config for values the application cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Actor == "" {
		errs = append(errs, errors.New("actor is required"))
	}
	if len(c.Vaults) == 0 {
		errs = append(errs, errors.New("at least one vault is required"))
	}
	switch c.Encryption.Type {
	case "", "none", "age", "test":
	default:
		errs = append(errs, fmt.Errorf("unknown encryption type %q", c.Encryption.Type))
	}
	switch c.Import.Mode {
	case "replace", "upsert":
	default:
		errs = append(errs, fmt.Errorf("unknown import mode %q", c.Import.Mode))
	}
	switch c.Import.StatusSource {
	case "days", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown status source %q", c.Import.StatusSource))
	}
	if c.Import.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch_size must be positive, got %d", c.Import.BatchSize))
	}
	if c.Import.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("concurrency must be positive, got %d", c.Import.Concurrency))
	}
	if c.Import.WarningAfterDays < 0 || c.Import.AlertAfterDays < c.Import.WarningAfterDays {
		errs = append(errs, fmt.Errorf("thresholds must satisfy 0 <= warning_after_days (%d) <= alert_after_days (%d)",
			c.Import.WarningAfterDays, c.Import.AlertAfterDays))
	}
	if c.Metrics.Enabled && c.Metrics.TextfilePath == "" {
		errs = append(errs, errors.New("metrics.textfile_path is required when metrics are enabled"))
	}
	return errors.Join(errs...)
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader. Import settings missing
// from the file keep their defaults.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	cfg := Config{Import: DefaultImportConfig()}
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}

// Save overwrites the config file at path.
func Save(path string, cfg *Config) error {
	return writeToFile(path, cfg)
}
