package database

import (
	"fmt"
	"os"
	"path/filepath"

	"ecotermo/internal/config"
)

// NewStoreFromConfig creates a SQLiteStore based on the database config type.
// The sqlite file is named after the actor, so each actor has its own
// register and history.
func NewStoreFromConfig(cfg config.DatabaseConfig, actor string) (*SQLiteStore, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if actor == "" {
			return nil, fmt.Errorf("actor required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data_dir: %w", err)
		}
		return NewSQLiteStore(filepath.Join(cfg.DataDir, actor+".db"))
	case "memory":
		return NewSQLiteStore(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
