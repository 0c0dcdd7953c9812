// Package store is the data access layer over the view log database.
package store

import (
	"gorm.io/gorm"

	"github.com/petmvp/passportview/internal/database"
)

// Store aggregates the data stores.
type Store interface {
	ViewLog() ViewLogStore

	// DB returns the underlying connection
	DB() *gorm.DB

	// Ping reports whether the database answers; used by /health
	Ping() error

	// Transaction runs fn against a Store bound to one transaction.
	Transaction(fn func(Store) error) error
}

type gormStore struct {
	db           *gorm.DB
	viewLogStore ViewLogStore
}

// NewStore returns a Store backed by db.
func NewStore(db *gorm.DB) Store {
	return &gormStore{
		db:           db,
		viewLogStore: newViewLogStore(db),
	}
}

func (s *gormStore) ViewLog() ViewLogStore {
	return s.viewLogStore
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) Ping() error {
	return database.Ping(s.db)
}

func (s *gormStore) Transaction(fn func(Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
