package database

import (
	"os"
	"path/filepath"
	"testing"

	"ecotermo/internal/config"
)

func TestNewStoreFromConfig(t *testing.T) {
	t.Run("memory database", func(t *testing.T) {
		cfg := config.DatabaseConfig{Type: "memory"}
		got, err := NewStoreFromConfig(cfg, "planta-01")
		if err != nil {
			t.Fatalf("NewStoreFromConfig() unexpected error: %v", err)
		}
		defer got.Close()

		if got.Path() != ":memory:" {
			t.Errorf("Path() = %q, want %q", got.Path(), ":memory:")
		}
	})

	t.Run("sqlite database is named after the actor", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "db")
		cfg := config.DatabaseConfig{Type: "sqlite", DataDir: dir}
		got, err := NewStoreFromConfig(cfg, "planta-01")
		if err != nil {
			t.Fatalf("NewStoreFromConfig() unexpected error: %v", err)
		}
		defer got.Close()

		want := filepath.Join(dir, "planta-01.db")
		if got.Path() != want {
			t.Errorf("Path() = %q, want %q", got.Path(), want)
		}
		if err := got.Migrate(); err != nil {
			t.Fatalf("Migrate() error = %v", err)
		}
		if _, err := os.Stat(want); err != nil {
			t.Errorf("database file not created: %v", err)
		}
	})

	t.Run("sqlite database without data_dir", func(t *testing.T) {
		cfg := config.DatabaseConfig{Type: "sqlite"}
		got, err := NewStoreFromConfig(cfg, "planta-01")
		if err == nil {
			t.Error("NewStoreFromConfig() expected error for missing data_dir, got nil")
		}
		if got != nil {
			t.Error("NewStoreFromConfig() should return nil on error")
			got.Close()
		}
	})

	t.Run("sqlite database without actor", func(t *testing.T) {
		cfg := config.DatabaseConfig{Type: "sqlite", DataDir: t.TempDir()}
		if _, err := NewStoreFromConfig(cfg, ""); err == nil {
			t.Error("NewStoreFromConfig() expected error for missing actor, got nil")
		}
	})

	t.Run("unknown database type", func(t *testing.T) {
		cfg := config.DatabaseConfig{Type: "unknown"}
		got, err := NewStoreFromConfig(cfg, "planta-01")
		if err == nil {
			t.Error("NewStoreFromConfig() expected error for unknown type, got nil")
		}
		if got != nil {
			t.Error("NewStoreFromConfig() should return nil on error")
			got.Close()
		}
	})
}
