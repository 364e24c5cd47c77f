package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		Actor:   "planta-01",
		BaseDir: "/home/user/.local/share/ecotermo",
		LogDir:  "/home/user/.local/share/ecotermo/log",
		Vaults: []VaultConfig{
			{Type: "filesystem", Name: "local", FSVaultRoot: "/backup/vault"},
			{Type: "s3", Name: "offsite", S3Bucket: "ecotermo", S3Region: "sa-east-1", S3UsePathStyle: true},
		},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  "/home/user/.local/share/ecotermo/keys/ecotermo.pub",
			PrivateKeyPath: "/home/user/.local/share/ecotermo/keys/ecotermo.key",
		},
		Database: DatabaseConfig{Type: "sqlite", DataDir: "/home/user/.local/share/ecotermo/db"},
		Import: ImportConfig{
			Mode:             "upsert",
			History:          false,
			BatchSize:        100,
			Concurrency:      2,
			WarningAfterDays: 6,
			AlertAfterDays:   9,
			StatusSource:     "text",
		},
		Metrics: MetricsConfig{Enabled: true, TextfilePath: "/var/lib/node_exporter/ecotermo.prom"},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.Actor != original.Actor {
		t.Errorf("Actor = %q, want %q", got.Actor, original.Actor)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if len(got.Vaults) != 2 {
		t.Fatalf("len(Vaults) = %d, want 2", len(got.Vaults))
	}
	if got.Vaults[0].FSVaultRoot != "/backup/vault" {
		t.Errorf("Vault.FSVaultRoot = %q, want %q", got.Vaults[0].FSVaultRoot, "/backup/vault")
	}
	if got.Vaults[1].S3Bucket != "ecotermo" || !got.Vaults[1].S3UsePathStyle {
		t.Errorf("Vaults[1] = %+v, want bucket ecotermo with path style", got.Vaults[1])
	}
	if got.Encryption != original.Encryption {
		t.Errorf("Encryption = %+v, want %+v", got.Encryption, original.Encryption)
	}
	if got.Import != original.Import {
		t.Errorf("Import = %+v, want %+v", got.Import, original.Import)
	}
	if got.Metrics != original.Metrics {
		t.Errorf("Metrics = %+v, want %+v", got.Metrics, original.Metrics)
	}
}

func TestManager_Read_ImportDefaults(t *testing.T) {
	m := &Manager{}
	cfg, err := m.Read(strings.NewReader("actor = \"a\"\n\n[import]\nmode = \"upsert\"\n"))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	want := DefaultImportConfig()
	want.Mode = "upsert"
	if cfg.Import != want {
		t.Errorf("Import = %+v, want %+v", cfg.Import, want)
	}
}

func TestManager_Read_HistoryCanBeDisabled(t *testing.T) {
	m := &Manager{}
	cfg, err := m.Read(strings.NewReader("[import]\nhistory = false\n"))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if cfg.Import.History {
		t.Error("Import.History = true, want false")
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("actor-1", "/data/ecotermo")

	if cfg.Actor != "actor-1" {
		t.Errorf("Actor = %q, want %q", cfg.Actor, "actor-1")
	}
	if cfg.LogDir != "/data/ecotermo/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/ecotermo/log")
	}
	if cfg.Encryption.PublicKeyPath != "/data/ecotermo/keys/ecotermo.pub" {
		t.Errorf("Encryption.PublicKeyPath = %q, want %q", cfg.Encryption.PublicKeyPath, "/data/ecotermo/keys/ecotermo.pub")
	}
	if cfg.Database.DataDir != "/data/ecotermo/db" {
		t.Errorf("Database.DataDir = %q, want %q", cfg.Database.DataDir, "/data/ecotermo/db")
	}
	if len(cfg.Vaults) != 1 || cfg.Vaults[0].FSVaultRoot != "/data/ecotermo/vault" {
		t.Errorf("Vaults = %+v, want one filesystem vault under base dir", cfg.Vaults)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing actor", func(c *Config) { c.Actor = "" }, "actor is required"},
		{"no vaults", func(c *Config) { c.Vaults = nil }, "at least one vault"},
		{"bad mode", func(c *Config) { c.Import.Mode = "merge" }, "unknown import mode"},
		{"bad status source", func(c *Config) { c.Import.StatusSource = "both" }, "unknown status source"},
		{"bad encryption", func(c *Config) { c.Encryption.Type = "rot13" }, "unknown encryption type"},
		{"zero batch size", func(c *Config) { c.Import.BatchSize = 0 }, "batch_size"},
		{"zero concurrency", func(c *Config) { c.Import.Concurrency = 0 }, "concurrency"},
		{"inverted thresholds", func(c *Config) { c.Import.AlertAfterDays = 3 }, "thresholds"},
		{"metrics without path", func(c *Config) {
			c.Metrics = MetricsConfig{Enabled: true}
		}, "textfile_path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("a", "/data")
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "ecotermo.toml")
		cfg := NewConfig("a1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "ecotermo.toml")
		cfg := NewConfig("a1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ecotermo.toml")
	cfg := NewConfig("a1", dir)
	if err := Init(path, cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	cfg.Encryption.Type = "age"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := ReadFromFile(path)
	if err != nil {
		t.Fatalf("ReadFromFile() error = %v", err)
	}
	if got.Encryption.Type != "age" {
		t.Errorf("Encryption.Type = %q, want %q", got.Encryption.Type, "age")
	}
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "ecotermo.toml")
		cfg := NewConfig("read-test", dir)
		cfg.Database = DatabaseConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Actor != "read-test" {
			t.Errorf("Actor = %q, want %q", got.Actor, "read-test")
		}
		if got.Database.Type != "memory" {
			t.Errorf("Database.Type = %q, want %q", got.Database.Type, "memory")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/ecotermo.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := &Config{
		Actor:   "tester",
		BaseDir: "/data/eco",
		Import:  ImportConfig{Mode: "upsert", BatchSize: 50},
	}
	cfg.ApplyDefaults()

	if cfg.Import.Mode != "upsert" || cfg.Import.BatchSize != 50 {
		t.Errorf("ApplyDefaults() overwrote set values: %+v", cfg.Import)
	}
	if cfg.Import.Concurrency != 1 || cfg.Import.StatusSource != "days" {
		t.Errorf("ApplyDefaults() import = %+v, want concurrency 1 and status from days", cfg.Import)
	}
	if cfg.Import.WarningAfterDays != 6 || cfg.Import.AlertAfterDays != 8 {
		t.Errorf("thresholds = %d/%d, want 6/8", cfg.Import.WarningAfterDays, cfg.Import.AlertAfterDays)
	}
	if cfg.LogDir != "/data/eco/log" {
		t.Errorf("LogDir = %q, want /data/eco/log", cfg.LogDir)
	}
}
