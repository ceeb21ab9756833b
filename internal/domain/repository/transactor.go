package repository

import (
	"context"

	"gorm.io/gorm"
)

// Transactor hands out database handles to usecases. Repositories receive
// the handle, so the same repository call works inside and outside a
// transaction.
type Transactor interface {
	DB(ctx context.Context) *gorm.DB
	WithinTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}
