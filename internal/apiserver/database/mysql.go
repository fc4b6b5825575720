package database

import (
	"fmt"

	"gorm.io/driver/mysql"

	"github.com/frotalog/registro/internal/common/config"
)

// NewMySQL creates a new MySQL-backed store
func NewMySQL(cfg *config.DatabaseConfig) (Database, error) {
	db, err := newStore(mysql.Open(cfg.GetDSN()))
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql database: %w", err)
	}
	return db, nil
}
