package database

import (
	"context"

	"github.com/hisiddique/bloodathome/internal/domain/repository"

	"gorm.io/gorm"
)

type gormTransactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) repository.Transactor {
	return &gormTransactor{db: db}
}

func (t *gormTransactor) DB(ctx context.Context) *gorm.DB {
	return t.db.WithContext(ctx)
}

// WithinTransaction commits when fn returns nil and rolls back otherwise.
func (t *gormTransactor) WithinTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return t.db.WithContext(ctx).Transaction(fn)
}
