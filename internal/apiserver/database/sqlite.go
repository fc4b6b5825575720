package database

import (
	"fmt"

	"github.com/glebarez/sqlite"

	"github.com/frotalog/registro/internal/common/config"
)

// NewSQLite creates a new SQLite-backed store
func NewSQLite(cfg *config.DatabaseConfig) (Database, error) {
	db, err := newStore(sqlite.Open(cfg.GetDSN()))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	return db, nil
}
