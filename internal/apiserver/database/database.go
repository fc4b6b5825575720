package database

import (
	"context"

	"gorm.io/gorm"
)

// Database defines the methods the handlers and the sync services need from
// the relational store.
type Database interface {
	// Close closes the database connection.
	Close() error

	// GetUserByEmail returns the user with the given login email.
	GetUserByEmail(ctx context.Context, email string) (*Usuario, error)

	// GetUserByID returns the user with the given server-internal id.
	GetUserByID(ctx context.Context, id uint) (*Usuario, error)

	// Transaction runs fn inside one database transaction. The transaction is
	// also placed into the context so store methods called with that context
	// participate in it.
	Transaction(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB) error) error

	// GORM exposes the underlying handle for query-shaped callers such as the
	// pull service.
	GORM() *gorm.DB
}
