package database

import (
	"fmt"

	"gorm.io/driver/postgres"

	"github.com/frotalog/registro/internal/common/config"
)

// NewPostgres creates a new PostgreSQL-backed store
func NewPostgres(cfg *config.DatabaseConfig) (Database, error) {
	db, err := newStore(postgres.Open(cfg.GetDSN()))
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}
	return db, nil
}
