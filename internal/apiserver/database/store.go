package database

import (
	"context"

	"gorm.io/gorm"
)

// store implements Database over a GORM handle. The per-driver constructors
// differ only in the dialector they open.
type store struct {
	db *gorm.DB
}

func newStore(dialector gorm.Dialector) (Database, error) {
	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := gormDB.AutoMigrate(&Empresa{}, &Usuario{}, &Registro{}, &FotoRegistro{}); err != nil {
		return nil, err
	}
	return &store{db: gormDB}, nil
}

func (s *store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *store) GetUserByEmail(ctx context.Context, email string) (*Usuario, error) {
	var user Usuario
	if err := getDBFromContext(ctx, s.db).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *store) GetUserByID(ctx context.Context, id uint) (*Usuario, error) {
	var user Usuario
	if err := getDBFromContext(ctx, s.db).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *store) Transaction(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ContextWithTransaction(ctx, tx), tx)
	})
}

func (s *store) GORM() *gorm.DB {
	return s.db
}
